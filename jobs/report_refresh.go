package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// CacheBumper invalidates a versioned cache.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// NewReportRefreshHandler returns the handler for TaskReportRefresh. Buyer
// performance rows are written by an external process, so cached reports are
// dropped on a schedule.
func NewReportRefreshHandler(cache CacheBumper, metrics JobObserver, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := cache.Bump(ctx); err != nil {
			if metrics != nil {
				metrics.ObserveJob(TaskReportRefresh, "error")
			}
			return err
		}
		if metrics != nil {
			metrics.ObserveJob(TaskReportRefresh, "success")
		}
		if logger != nil {
			logger.Debug("report cache bumped")
		}
		return nil
	}
}
