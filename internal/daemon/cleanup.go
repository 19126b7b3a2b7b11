package daemon

import (
	"context"
	"log/slog"
	"time"

	"amora/internal/config"
	"amora/internal/database"
)

// CleanupTask periodically removes expired captchas and accounts that never
// confirmed within the retention window.
func CleanupTask(db *database.Database, logger *slog.Logger, cfg config.RegistrationConfig) DaemonFunc {
	return func(ctx context.Context, name string) error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("Cleanup task shutting down", "daemon", name)
				return nil
			case <-ticker.C:
				now := time.Now()

				if deleted, err := db.DeleteExpiredCaptchas(ctx, now); err != nil {
					logger.Error("Failed to delete expired captchas", "error", err)
				} else if deleted > 0 {
					logger.Info("Deleted expired captchas", "count", deleted)
				}

				cutoff := now.Add(-cfg.UnconfirmedRetention)
				if deleted, err := db.DeleteStaleUnconfirmedUsers(ctx, cutoff); err != nil {
					logger.Error("Failed to delete stale unconfirmed users", "error", err)
				} else if deleted > 0 {
					logger.Info("Deleted stale unconfirmed users", "count", deleted)
				}
			}
		}
	}
}
