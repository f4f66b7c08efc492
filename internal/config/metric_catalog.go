package config

import (
	"errors"
	"io/fs"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/fleetwatch/internal/telemetry/normalizer"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const metricCatalogKey = "metrics"

// MetricCatalogHolder serves the current metric catalog and swaps it when
// metrics.yml changes on disk. Invalid edits keep the previous catalog.
type MetricCatalogHolder struct {
	current atomic.Value // holds normalizer.Catalog
	log     *zap.Logger
}

var _ normalizer.CatalogSource = (*MetricCatalogHolder)(nil)

func NewMetricCatalogHolder(cfg Config, log *zap.Logger) (*MetricCatalogHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	holder := &MetricCatalogHolder{log: log.Named("config.metric_catalog")}

	v := viper.New()
	if path := strings.TrimSpace(cfg.MetricCatalogPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metrics")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/fleetwatch")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		holder.current.Store(normalizer.DefaultCatalog())
		holder.log.Info("metric_catalog.default")
		return holder, nil
	}

	catalog, err := decodeMetricCatalog(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(catalog)
	holder.log.Info("metric_catalog.loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.Int("metrics", len(catalog.Metrics())),
	)

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeMetricCatalog(v)
		if err != nil {
			holder.log.Warn("metric_catalog.reload_ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		holder.log.Info("metric_catalog.reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticMetricCatalogHolder returns a holder pinned to catalog.
func NewStaticMetricCatalogHolder(catalog normalizer.Catalog) *MetricCatalogHolder {
	holder := &MetricCatalogHolder{log: zap.NewNop()}
	holder.current.Store(catalog)
	return holder
}

func (h *MetricCatalogHolder) Catalog() normalizer.Catalog {
	return h.current.Load().(normalizer.Catalog)
}

func decodeMetricCatalog(v *viper.Viper) (normalizer.Catalog, error) {
	var metrics []normalizer.Metric
	if err := v.UnmarshalKey(metricCatalogKey, &metrics); err != nil {
		return normalizer.Catalog{}, err
	}
	return normalizer.NewCatalog(metrics)
}
