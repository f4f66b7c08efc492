package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var blockedAttributeKeys = map[attribute.Key]struct{}{
	"recipients":    {},
	"webhook.url":   {},
	"authorization": {},
	"email":         {},
	"phone":         {},
}

// ExtractContext pulls remote span context and baggage from carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that may carry notification targets or secrets.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError strips URLs from an error message before it is recorded on a span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	parts := strings.Fields(err.Error())
	for i, p := range parts {
		trimmed := strings.Trim(p, `"':,`)
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			parts[i] = "[redacted-url]"
		}
	}
	return errors.New(strings.Join(parts, " "))
}
