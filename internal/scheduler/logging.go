package scheduler

import (
	"context"

	obslogger "github.com/smallbiznis/fleetwatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	"go.uber.org/zap"
)

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logSweepError(ctx context.Context, trigger, msg string, err error) {
	if err == nil {
		return
	}
	s.logger(ctx).Error(msg,
		zap.String("trigger", trigger),
		zap.String("error_type", obsmetrics.ClassifyErrorReason(err)),
		zap.Bool("retryable", obsmetrics.IsRetryable(err)),
		zap.Error(err),
	)
}
