package dashboard

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRefreshInterval matches the dashboard auto-refresh period.
const DefaultRefreshInterval = 5 * time.Minute

// Refresher periodically invalidates rendered charts and tells subscribed
// pages to reload. It never fetches statistics itself since every user loads
// dashboards with their own token.
type Refresher struct {
	Aggregator *Aggregator
	Hook       RefreshHook
	Interval   time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Run blocks until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick purges the chart cache and publishes one event per dashboard.
func (r *Refresher) Tick(ctx context.Context) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if r.Aggregator == nil {
		return
	}
	r.Aggregator.PurgeCache()
	if r.Hook == nil {
		return
	}
	at := now()
	for _, def := range r.Aggregator.Definitions().Definitions() {
		if err := r.Hook.DashboardRefreshed(ctx, RefreshEvent{Code: def.Code, At: at}); err != nil {
			logger.WarnContext(ctx, "dashboard refresh publish failed", "dashboard", def.Code, "error", err)
		}
	}
}
