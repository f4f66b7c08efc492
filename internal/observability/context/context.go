package context

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

type (
	requestIDKey     struct{}
	orgIDKey         struct{}
	actorKey         struct{}
	runIDKey         struct{}
	correlationIDKey struct{}
)

type actor struct {
	typ string
	id  string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey{})
}

func WithOrgID(ctx context.Context, orgID string) context.Context {
	return withString(ctx, orgIDKey{}, orgID)
}

func OrgIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, orgIDKey{})
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor{
		typ: strings.TrimSpace(actorType),
		id:  strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if a, ok := ctx.Value(actorKey{}).(actor); ok {
		return a.typ, a.id
	}
	return "", ""
}

// WithRunID tags the context with the sweep run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return withString(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, runIDKey{})
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withString(ctx, correlationIDKey{}, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, correlationIDKey{})
}

// EnsureCorrelationID returns ctx carrying a correlation id, minting a ULID when absent.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if cid := CorrelationIDFromContext(ctx); cid != "" {
		return ctx, cid
	}
	cid := ulid.Make().String()
	return WithCorrelationID(ctx, cid), cid
}

func withString(ctx context.Context, key any, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
