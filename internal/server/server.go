package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"github.com/smallbiznis/fleetwatch/internal/evaluator"
	"github.com/smallbiznis/fleetwatch/internal/observability"
	obslogger "github.com/smallbiznis/fleetwatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fleetwatch/internal/observability/tracing"
	"github.com/smallbiznis/fleetwatch/internal/ratelimit"
	"github.com/smallbiznis/fleetwatch/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownGrace = 10 * time.Second

// Module serves the manual trigger API next to the scheduler loop.
var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(
		NewEngine,
		func(s *scheduler.Scheduler) SweepTrigger { return s },
		NewServer,
	),
	fx.Invoke(serve),
)

// SweepTrigger starts one sweep under the shared lease.
type SweepTrigger interface {
	Trigger(ctx context.Context, trigger, orgID string) (evaluator.Summary, error)
}

type triggerLimiter interface {
	Enabled() bool
	Allow(ctx context.Context, orgID string) (ratelimit.Result, error)
}

// NewEngine builds the gin engine with the shared middleware chain plus the health and metrics routes.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		obslogger.GinMiddleware(obslogger.MiddlewareConfig{
			Debug:           obsCfg.Debug(),
			ErrorClassifier: classifyErrorForLog,
		}),
		obstracing.GinMiddleware(),
		obsmetrics.GinMiddleware(httpMetrics),
		ErrorHandlingMiddleware(),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

type Server struct {
	engine  *gin.Engine
	trigger SweepTrigger
	limiter triggerLimiter
	log     *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin     *gin.Engine
	Trigger SweepTrigger
	Limiter *ratelimit.TriggerLimiter `optional:"true"`
	Log     *zap.Logger
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:  p.Gin,
		trigger: p.Trigger,
		limiter: p.Limiter,
		log:     p.Log.Named("http"),
	}
	v1 := s.engine.Group("/v1")
	v1.POST("/sweeps", s.TriggerRateLimit(), s.TriggerSweep)
	return s
}

// serve binds during start so a taken port fails the app instead of a background goroutine.
func serve(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http.server.listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http.server.failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}
