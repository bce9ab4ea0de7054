package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/wattshare/wattshare-go/config"
	"github.com/wattshare/wattshare-go/plants"
)

// NewRecorderTask wraps the historical snapshot in the retry policy. The
// snapshot itself is idempotent per grid slot, so a retried run only fills
// in what the failed attempt left out.
func NewRecorderTask(logger *slog.Logger, plantSvc *plants.Service, cnfg config.AppConfigRecorder) func() {
	return func() {
		logger.Debug("running recorder task...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		var inserted int
		err := Retry(ctx, cnfg.GetRetryAttempts(), cnfg.GetRetryDelay(), func(ctx context.Context) error {
			var err error
			inserted, err = plantSvc.RecordSnapshot(ctx, cnfg.GetBatchSize())
			return err
		}, func(attempt int, err error) {
			logger.Warn("recorder attempt failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		})
		if err != nil {
			logger.Error("recorder task error", slog.Any("error", err))
			return
		}

		logger.Info("recorder task done", slog.Int("rows", inserted))
	}
}
