package normalizer

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	typeKey   = "type"
	sensorKey = "sensor"
	valueKey  = "value"
	envKey    = "env"
)

// Strategy extracts a metric from one payload shape.
type Strategy struct {
	Name    string
	Extract func(c Catalog, payload map[string]any, metric Metric) (float64, bool)
}

// Strategies are tried in order; the first success wins.
var Strategies = []Strategy{
	{Name: "direct_key", Extract: extractDirectKey},
	{Name: "type_code", Extract: extractTypeCoded},
	{Name: "sensor_name", Extract: extractNamedSensor},
	{Name: "flat_alias", Extract: extractFlatAlias},
	{Name: "nested_env", Extract: extractNestedEnv},
}

// Normalizer resolves canonical metric values against a possibly reloading catalog.
type Normalizer struct {
	source CatalogSource
}

func New(source CatalogSource) *Normalizer {
	if source == nil {
		source = StaticSource(DefaultCatalog())
	}
	return &Normalizer{source: source}
}

// Normalize returns the value of metric inside payload, or false when not found.
func (n *Normalizer) Normalize(payload map[string]any, metric string) (float64, bool) {
	return Normalize(n.source.Catalog(), payload, metric)
}

// Normalize is the pure form of Normalizer.Normalize.
func Normalize(c Catalog, payload map[string]any, metric string) (float64, bool) {
	if len(payload) == 0 || strings.TrimSpace(metric) == "" {
		return 0, false
	}
	m := c.Lookup(metric)
	for _, s := range Strategies {
		if v, ok := s.Extract(c, payload, m); ok {
			return v, true
		}
	}
	return 0, false
}

func extractDirectKey(_ Catalog, payload map[string]any, metric Metric) (float64, bool) {
	raw, ok := payload[metric.Name]
	if !ok {
		return 0, false
	}
	return toFloat(raw)
}

func extractTypeCoded(c Catalog, payload map[string]any, metric Metric) (float64, bool) {
	rawType, ok := payload[typeKey]
	if !ok {
		return 0, false
	}
	code, ok := codeString(rawType)
	if !ok {
		return 0, false
	}
	name, ok := c.MetricForCode(code)
	if !ok || name != metric.Name {
		return 0, false
	}
	return toFloat(payload[valueKey])
}

func extractNamedSensor(_ Catalog, payload map[string]any, metric Metric) (float64, bool) {
	sensor, ok := payload[sensorKey].(string)
	if !ok {
		return 0, false
	}
	sensor = strings.TrimSpace(sensor)
	for _, alias := range metric.Aliases {
		if strings.EqualFold(sensor, alias) {
			return toFloat(payload[valueKey])
		}
	}
	return 0, false
}

func extractFlatAlias(_ Catalog, payload map[string]any, metric Metric) (float64, bool) {
	return lookupAliases(payload, metric.Aliases)
}

func extractNestedEnv(_ Catalog, payload map[string]any, metric Metric) (float64, bool) {
	env, ok := payload[envKey].(map[string]any)
	if !ok {
		return 0, false
	}
	return lookupAliases(env, metric.Aliases)
}

// lookupAliases prefers an exact key, then a case-insensitive one. Case variants are
// tried in sorted key order so the same payload always yields the same value.
func lookupAliases(payload map[string]any, aliases []string) (float64, bool) {
	var keys []string
	for _, alias := range aliases {
		if raw, ok := payload[alias]; ok {
			if v, ok := toFloat(raw); ok {
				return v, true
			}
		}
		if keys == nil {
			keys = slices.Sorted(maps.Keys(payload))
		}
		for _, key := range keys {
			if key == alias || !strings.EqualFold(key, alias) {
				continue
			}
			if v, ok := toFloat(payload[key]); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func codeString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case json.Number:
		return v.String(), true
	default:
		f, ok := toFloat(raw)
		if !ok || f != math.Trunc(f) {
			return "", false
		}
		return strconv.FormatInt(int64(f), 10), true
	}
}

func toFloat(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
