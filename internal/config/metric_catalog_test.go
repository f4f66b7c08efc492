package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalogYAML = `metrics:
  - name: temperature
    type_codes: ["1"]
    aliases: [temp, t]
  - name: soil_moisture
    type_codes: ["42"]
    aliases: [soil]
`

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "metrics.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMetricCatalogHolderLoadsFile(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), catalogYAML)

	holder, err := NewMetricCatalogHolder(Config{MetricCatalogPath: path}, zap.NewNop())
	require.NoError(t, err)

	catalog := holder.Catalog()
	name, ok := catalog.MetricForCode("42")
	require.True(t, ok)
	assert.Equal(t, "soil_moisture", name)
	assert.Contains(t, catalog.Lookup("temperature").Aliases, "t")
}

func TestMetricCatalogHolderFallsBackToDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yml")

	holder, err := NewMetricCatalogHolder(Config{MetricCatalogPath: missing}, zap.NewNop())
	require.NoError(t, err)

	name, ok := holder.Catalog().MetricForCode("10")
	require.True(t, ok)
	assert.Equal(t, "motion", name)
}

func TestMetricCatalogHolderRejectsInvalidFile(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), "metrics:\n  - name: a\n    type_codes: [\"1\"]\n  - name: b\n    type_codes: [\"1\"]\n")

	_, err := NewMetricCatalogHolder(Config{MetricCatalogPath: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestMetricCatalogHolderReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, catalogYAML)

	holder, err := NewMetricCatalogHolder(Config{MetricCatalogPath: path}, zap.NewNop())
	require.NoError(t, err)

	updated := strings.Replace(catalogYAML, `"42"`, `"43"`, 1)
	writeCatalog(t, dir, updated)

	require.Eventually(t, func() bool {
		name, ok := holder.Catalog().MetricForCode("43")
		return ok && name == "soil_moisture"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestDecodeMetricCatalogEmpty(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yml")
	require.NoError(t, v.ReadConfig(strings.NewReader("metrics: []\n")))

	_, err := decodeMetricCatalog(v)
	assert.Error(t, err)
}
