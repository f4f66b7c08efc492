package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/fleetwatch/internal/clock"
	"github.com/smallbiznis/fleetwatch/internal/evaluator"
	"github.com/smallbiznis/fleetwatch/internal/lock"
	obscontext "github.com/smallbiznis/fleetwatch/internal/observability/context"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfig   = errors.New("invalid_scheduler_config")
	ErrSweepInProgress = errors.New("sweep_in_progress")
)

const releaseTimeout = 5 * time.Second

type Params struct {
	fx.In

	Log          *zap.Logger
	Sweeper      evaluator.Sweeper
	Locker       lock.Locker
	Clock        clock.Clock
	Config       Config                   `optional:"true"`
	SweepMetrics *obsmetrics.SweepMetrics `optional:"true"`
}

// Scheduler owns every entry into a sweep: the ticker loop, manual HTTP triggers and the
// one-shot binary all go through Trigger so at most one sweep runs per lock key.
type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	sweeper      evaluator.Sweeper
	locker       lock.Locker
	clock        clock.Clock
	sweepMetrics *obsmetrics.SweepMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Sweeper == nil || p.Locker == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		sweeper:      p.Sweeper,
		locker:       p.Locker,
		clock:        p.Clock,
		sweepMetrics: p.SweepMetrics,
	}, nil
}

// Trigger runs one sweep under the lease. orgID may be empty to sweep every organization.
// A held lease returns ErrSweepInProgress without sweeping.
func (s *Scheduler) Trigger(parent context.Context, trigger, orgID string) (evaluator.Summary, error) {
	ctx := obscontext.WithActor(parent, "system", trigger)
	if orgID != "" {
		ctx = obscontext.WithOrgID(ctx, orgID)
	}
	s.sweepMetrics.IncRun(trigger)

	token, ok, err := s.locker.TryLock(ctx, s.cfg.LockKey, s.cfg.LockTTL)
	if err != nil {
		s.sweepMetrics.IncRunError(trigger, err)
		s.logSweepError(ctx, trigger, "scheduler.lock.failed", err)
		return evaluator.Summary{}, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		s.sweepMetrics.IncLockContended(trigger)
		s.logger(ctx).Info("scheduler.sweep.skipped",
			zap.String("trigger", trigger),
			zap.String("reason", "lock_held"),
		)
		return evaluator.Summary{}, ErrSweepInProgress
	}
	defer s.release(ctx, token)

	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := s.clock.Now()
	summary, err := s.sweeper.Sweep(sweepCtx)
	s.sweepMetrics.ObserveDuration(trigger, s.clock.Now().Sub(start))

	if errors.Is(err, context.DeadlineExceeded) && errors.Is(sweepCtx.Err(), context.DeadlineExceeded) {
		s.sweepMetrics.IncTimeout(trigger)
		s.logger(ctx).Warn("scheduler.sweep.timeout",
			zap.String("trigger", trigger),
			zap.Duration("timeout", s.cfg.Timeout),
			zap.Int("evaluated", summary.Evaluated),
			zap.Int("triggered", summary.Triggered),
			zap.Int("errors", summary.Errors),
		)
		return summary, err
	}
	if err != nil {
		s.sweepMetrics.IncRunError(trigger, err)
		s.logSweepError(ctx, trigger, "scheduler.sweep.failed", err)
		return summary, err
	}
	return summary, nil
}

// RunOnce performs one scheduled sweep. A contended lease is not an error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	orgID := ""
	if s.cfg.OrgID > 0 {
		orgID = s.cfg.OrgID.String()
	}
	_, err := s.Trigger(ctx, obsmetrics.TriggerScheduler, orgID)
	if errors.Is(err, ErrSweepInProgress) {
		return nil
	}
	return err
}

// RunForever sweeps immediately and then every Interval until ctx is done.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	s.logger(ctx).Info("scheduler.started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("timeout", s.cfg.Timeout),
	)
	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.sweepMetrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.logger(ctx).Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.Interval)

		select {
		case <-ctx.Done():
			s.logger(ctx).Info("scheduler.stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) release(ctx context.Context, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.locker.Release(releaseCtx, s.cfg.LockKey, token); err != nil {
		s.logger(ctx).Warn("scheduler.lock.release_failed", zap.Error(err))
	}
}
