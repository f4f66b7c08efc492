package normalizer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCatalog     = errors.New("metric_catalog_empty")
	ErrInvalidMetric    = errors.New("invalid_metric")
	ErrDuplicateMetric  = errors.New("duplicate_metric")
	ErrDuplicateTypeKey = errors.New("duplicate_type_code")
)

// Metric describes how a canonical metric may appear in vendor payloads.
type Metric struct {
	Name      string   `mapstructure:"name" json:"name"`
	TypeCodes []string `mapstructure:"type_codes" json:"type_codes"`
	Aliases   []string `mapstructure:"aliases" json:"aliases"`
}

// Catalog is an immutable lookup table of canonical metrics.
type Catalog struct {
	ordered []Metric
	byName  map[string]Metric
	byCode  map[string]string
}

// CatalogSource yields the catalog that should be used for the next lookup.
type CatalogSource interface {
	Catalog() Catalog
}

type staticSource Catalog

func (s staticSource) Catalog() Catalog { return Catalog(s) }

// StaticSource wraps a fixed catalog.
func StaticSource(c Catalog) CatalogSource { return staticSource(c) }

func DefaultMetrics() []Metric {
	return []Metric{
		{Name: "temperature", TypeCodes: []string{"1"}, Aliases: []string{"temperature", "temp"}},
		{Name: "humidity", TypeCodes: []string{"2"}, Aliases: []string{"humidity", "hum"}},
		{Name: "pressure", TypeCodes: []string{"3"}, Aliases: []string{"pressure", "press"}},
		{Name: "battery", TypeCodes: []string{"4"}, Aliases: []string{"battery", "bat", "battery_level"}},
		{Name: "co2", TypeCodes: []string{"7"}, Aliases: []string{"co2"}},
		{Name: "tvoc", TypeCodes: []string{"8"}, Aliases: []string{"tvoc"}},
		{Name: "light", TypeCodes: []string{"9"}, Aliases: []string{"light"}},
		{Name: "motion", TypeCodes: []string{"10"}, Aliases: []string{"motion"}},
		{Name: "rssi", Aliases: []string{"rssi", "signal_strength"}},
	}
}

// DefaultCatalog returns the built-in catalog. It panics only if DefaultMetrics is inconsistent.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(DefaultMetrics())
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates metrics and builds the lookup indexes.
func NewCatalog(metrics []Metric) (Catalog, error) {
	if len(metrics) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	c := Catalog{
		ordered: make([]Metric, 0, len(metrics)),
		byName:  make(map[string]Metric, len(metrics)),
		byCode:  make(map[string]string),
	}
	for _, m := range metrics {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		if name == "" {
			return Catalog{}, ErrInvalidMetric
		}
		if _, exists := c.byName[name]; exists {
			return Catalog{}, fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
		}

		normalized := Metric{Name: name}
		for _, code := range m.TypeCodes {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if owner, taken := c.byCode[code]; taken {
				return Catalog{}, fmt.Errorf("%w: %s used by %s and %s", ErrDuplicateTypeKey, code, owner, name)
			}
			c.byCode[code] = name
			normalized.TypeCodes = append(normalized.TypeCodes, code)
		}
		normalized.Aliases = normalizeAliases(name, m.Aliases)

		c.ordered = append(c.ordered, normalized)
		c.byName[name] = normalized
	}
	return c, nil
}

// Lookup returns the catalog entry for name. Unknown metrics resolve to an
// entry whose only alias is the name itself.
func (c Catalog) Lookup(name string) Metric {
	name = strings.ToLower(strings.TrimSpace(name))
	if m, ok := c.byName[name]; ok {
		return m
	}
	return Metric{Name: name, Aliases: []string{name}}
}

// MetricForCode maps a vendor type code to its canonical metric.
func (c Catalog) MetricForCode(code string) (string, bool) {
	name, ok := c.byCode[strings.TrimSpace(code)]
	return name, ok
}

func (c Catalog) Metrics() []Metric {
	out := make([]Metric, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func normalizeAliases(name string, aliases []string) []string {
	seen := map[string]struct{}{name: {}}
	out := []string{name}
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		if _, dup := seen[alias]; dup {
			continue
		}
		seen[alias] = struct{}{}
		out = append(out, alias)
	}
	return out
}
