package context

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationIDMintsOnce(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	_, err := ulid.ParseStrict(cid)
	require.NoError(t, err)

	again, same := EnsureCorrelationID(ctx)
	assert.Equal(t, cid, same)
	assert.Equal(t, cid, CorrelationIDFromContext(again))
}

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithOrgID(ctx, "42")
	ctx = WithActor(ctx, "system", "scheduler")
	ctx = WithRunID(ctx, "")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "42", OrgIDFromContext(ctx))
	typ, id := ActorFromContext(ctx)
	assert.Equal(t, "system", typ)
	assert.Equal(t, "scheduler", id)
	assert.Empty(t, RunIDFromContext(ctx))
}
