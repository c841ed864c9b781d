package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/vstore/pkg/store"
)

// Logging creates middleware that logs every update with its outcome and
// duration. Successful updates log at Debug, failed ones at level.
// If logger is nil, slog.Default() is used.
func Logging(logger *slog.Logger, level slog.Level) store.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return store.MiddlewareFunc(func(ctx context.Context, info store.UpdateInfo, next func() error) error {
		start := time.Now()
		err := next()
		attrs := []any{
			"store", info.Store,
			"version", info.Version,
			"listeners", info.Listeners,
			"duration", time.Since(start),
		}
		if err != nil {
			logger.Log(ctx, level, "update failed", append(attrs, "error", err)...)
			return err
		}
		logger.DebugContext(ctx, "update", attrs...)
		return nil
	})
}
