package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-maintenance-dashboard/components/dashboard"
)

// LoadDashboardInput selects a dashboard and the display locale.
type LoadDashboardInput struct {
	Code   string
	Locale string
}

type viewLoader interface {
	Load(ctx context.Context, code, locale string) (dashboard.View, error)
}

// DashboardViewQuery executes read-only dashboard rendering.
type DashboardViewQuery struct {
	loader viewLoader
}

// NewDashboardViewQuery builds the query.
func NewDashboardViewQuery(loader viewLoader) *DashboardViewQuery {
	return &DashboardViewQuery{loader: loader}
}

var _ gocommand.Querier[LoadDashboardInput, dashboard.View] = (*DashboardViewQuery)(nil)

// Query loads the dashboard view.
func (q *DashboardViewQuery) Query(ctx context.Context, in LoadDashboardInput) (dashboard.View, error) {
	return q.loader.Load(ctx, in.Code, in.Locale)
}
