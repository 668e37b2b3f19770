package commands

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-maintenance-dashboard/components/dashboard"
)

// RefreshDashboardInput asks subscribed pages to reload a dashboard. An empty
// Code refreshes every registered dashboard.
type RefreshDashboardInput struct {
	Code string
}

type refreshTarget interface {
	PurgeCache()
	Definitions() *dashboard.Registry
}

// RefreshDashboardCommand drops cached charts and publishes refresh events.
type RefreshDashboardCommand struct {
	target    refreshTarget
	hook      dashboard.RefreshHook
	telemetry dashboard.Telemetry
	now       func() time.Time
}

// NewRefreshDashboardCommand creates the command.
func NewRefreshDashboardCommand(target refreshTarget, hook dashboard.RefreshHook, telemetry dashboard.Telemetry) *RefreshDashboardCommand {
	if telemetry == nil {
		telemetry = dashboard.NopTelemetry
	}
	return &RefreshDashboardCommand{target: target, hook: hook, telemetry: telemetry, now: time.Now}
}

var _ gocommand.Commander[RefreshDashboardInput] = (*RefreshDashboardCommand)(nil)

// Execute purges the render cache and notifies the refresh hook.
func (c *RefreshDashboardCommand) Execute(ctx context.Context, msg RefreshDashboardInput) error {
	if c.target == nil {
		return errors.New("refresh command requires an aggregator")
	}
	var defs []dashboard.Definition
	if msg.Code == "" {
		defs = c.target.Definitions().Definitions()
	} else {
		def, err := c.target.Definitions().Lookup(msg.Code)
		if err != nil {
			return err
		}
		defs = []dashboard.Definition{def}
	}
	c.target.PurgeCache()
	at := c.now()
	if c.hook != nil {
		for _, def := range defs {
			if err := c.hook.DashboardRefreshed(ctx, dashboard.RefreshEvent{Code: def.Code, At: at}); err != nil {
				return err
			}
		}
	}
	c.telemetry.Record(ctx, "dashboard.refresh", map[string]any{
		"dashboard":  msg.Code,
		"dashboards": len(defs),
	})
	return nil
}
