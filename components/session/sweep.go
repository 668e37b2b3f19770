package session

import (
	"context"
	"log/slog"
	"time"
)

// Expirer is implemented by stores able to purge expired sessions.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// Sweep purges expired sessions every interval until ctx is done. onExpired
// receives the purged ids so per-session state can be released.
func Sweep(ctx context.Context, store Expirer, interval time.Duration, onExpired func(ids []string), logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ids, err := store.DeleteExpired(ctx, now)
			if err != nil {
				logger.WarnContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if len(ids) > 0 {
				logger.DebugContext(ctx, "sessions expired", "count", len(ids))
				if onExpired != nil {
					onExpired(ids)
				}
			}
		}
	}
}
