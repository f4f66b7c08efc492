package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/fleetwatch/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsSweepFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRunID(context.Background(), "1790")
	ctx = obscontext.WithOrgID(ctx, "42")
	ctx = obscontext.WithActor(ctx, "scheduler", "")

	WithContext(ctx, base).Info("evaluator.sweep.start")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "1790", fields["run_id"])
	assert.Equal(t, "42", fields["org_id"])
	assert.Equal(t, "scheduler", fields["actor_type"])
	assert.NotContains(t, fields, "actor_id")
	assert.NotContains(t, fields, "trace_id")
}

func TestWithContextWithoutFieldsReturnsBase(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithContext(context.Background(), base))
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/v1/sweeps", http.StatusInternalServerError))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/v1/sweeps", http.StatusConflict))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/v1/sweeps", http.StatusOK))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", http.StatusOK))
}

func TestGinMiddlewareEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))

	var seen string
	r.GET("/health", func(c *gin.Context) {
		seen = obscontext.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-7", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "req-7", seen)
}
