package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	res, err := parseResult([]any{int64(1), "2.5", int64(1720087200000)}, 0.5, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, 3, res.Limit)
	assert.Zero(t, res.RetryAfter)

	res, err = parseResult([]any{int64(0), "0.25", int64(1720087200000)}, 0.5, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1500*time.Millisecond, res.RetryAfter)
}

func TestParseResultRejectsMalformed(t *testing.T) {
	for _, res := range [][]any{
		{int64(1)},
		{"1", "2", int64(0)},
		{int64(1), int64(2), int64(0)},
		{int64(1), "many", int64(0)},
	} {
		_, err := parseResult(res, 1, 1)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	}
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 12*time.Second, bucketTTL(0.5, 3))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}

func TestNilLimiterAllows(t *testing.T) {
	var l *TriggerLimiter
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	assert.Nil(t, newTriggerLimiter(nil, 1, 1))

	var bucket *TokenBucket
	_, err = bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
