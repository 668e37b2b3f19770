package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

type moduleSource interface {
	Lookup(code string) (modules.Module, error)
}

type recordLister = backend.Lister

type recordGetter interface {
	Get(ctx context.Context, resource, id string) (backend.Record, error)
}

// ListRecordsInput selects a page of a module.
type ListRecordsInput struct {
	Module string
	State  listview.FilterState
}

// ListRecordsQuery fetches one page of records for a module. Catalog
// modules are fetched whole, page by page, and filtered in process.
type ListRecordsQuery struct {
	modules moduleSource
	lister  recordLister
}

// NewListRecordsQuery builds the query.
func NewListRecordsQuery(modules moduleSource, lister recordLister) *ListRecordsQuery {
	return &ListRecordsQuery{modules: modules, lister: lister}
}

var _ gocommand.Querier[ListRecordsInput, backend.Page] = (*ListRecordsQuery)(nil)

// Query resolves the page.
func (q *ListRecordsQuery) Query(ctx context.Context, in ListRecordsInput) (backend.Page, error) {
	module, err := q.modules.Lookup(in.Module)
	if err != nil {
		return backend.Page{}, err
	}
	if !module.Catalog {
		return q.lister.List(ctx, module.Resource, in.State.ListQuery())
	}
	all, err := backend.ListAll(ctx, q.lister, module.Resource, backend.ListQuery{}, 0)
	if err != nil {
		return backend.Page{}, err
	}
	source := listview.NewLocalSource(all.Rows,
		listview.WithSearchKeys(module.SearchKeys...),
		listview.WithDateKey(module.DateKey),
	)
	return source.Fetch(ctx, in.State)
}

// Fetcher adapts the query to a list view fetch function for one module.
func (q *ListRecordsQuery) Fetcher(module string) listview.FetchFunc {
	return func(ctx context.Context, state listview.FilterState) (backend.Page, error) {
		return q.Query(ctx, ListRecordsInput{Module: module, State: state})
	}
}

// GetRecordInput identifies one record.
type GetRecordInput struct {
	Module string
	ID     string
}

// GetRecordQuery loads one record.
type GetRecordQuery struct {
	modules moduleSource
	getter  recordGetter
}

// NewGetRecordQuery builds the query.
func NewGetRecordQuery(modules moduleSource, getter recordGetter) *GetRecordQuery {
	return &GetRecordQuery{modules: modules, getter: getter}
}

var _ gocommand.Querier[GetRecordInput, backend.Record] = (*GetRecordQuery)(nil)

// Query resolves the record.
func (q *GetRecordQuery) Query(ctx context.Context, in GetRecordInput) (backend.Record, error) {
	module, err := q.modules.Lookup(in.Module)
	if err != nil {
		return nil, err
	}
	return q.getter.Get(ctx, module.Resource, in.ID)
}
