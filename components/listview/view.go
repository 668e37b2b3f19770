package listview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// FetchFunc loads one page of records for a filter state.
type FetchFunc func(ctx context.Context, state FilterState) (backend.Page, error)

// DeleteFunc removes a record by id.
type DeleteFunc func(ctx context.Context, id string) error

// ConfirmFunc gates destructive actions; returning false cancels them.
type ConfirmFunc func(record backend.Record) bool

var (
	errNoFetch  = errors.New("listview: fetch func is required")
	errNoDelete = errors.New("listview: delete func is not configured")
)

// Config wires a View to its data source.
type Config struct {
	Fetch   FetchFunc
	Delete  DeleteFunc
	Columns []ColumnSchema
	Initial FilterState
	Actions Actions
}

// Snapshot is an immutable copy of the view state used for rendering.
type Snapshot struct {
	State     FilterState
	Rows      []backend.Record
	Total     int
	Pager     Pager
	Columns   []ColumnSchema
	Actions   Actions
	Loading   bool
	Err       error
	Loaded    bool
	FetchedAt time.Time
	// Superseded marks the answer to a request that a newer one replaced.
	// It carries the request's own state, never the newer request's rows.
	Superseded bool
}

// Stale reports that the rows shown belong to an earlier successful fetch
// while the latest one failed.
func (s Snapshot) Stale() bool {
	return s.Err != nil && s.Loaded
}

// View is the stateful list controller for one module in one session.
// Every state change re-fetches; only the most recently issued fetch may
// update the rows, older in-flight fetches are cancelled and discarded.
type View struct {
	cfg Config

	mu        sync.Mutex
	state     FilterState
	rows      []backend.Record
	total     int
	loading   bool
	loaded    bool
	err       error
	fetchedAt time.Time
	gen       uint64
	cancel    context.CancelFunc
	lastUsed  time.Time
}

// NewView builds a view. The first Refresh performs the initial fetch.
func NewView(cfg Config) (*View, error) {
	if cfg.Fetch == nil {
		return nil, errNoFetch
	}
	state := cfg.Initial
	if state.PageSize <= 0 || state.Page < 1 || state.EntityFilters == nil {
		state = state.clone()
	}
	return &View{cfg: cfg, state: state, rows: []backend.Record{}, lastUsed: time.Now()}, nil
}

// State returns the current filter state.
func (v *View) State() FilterState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// Refresh re-runs the fetch for the current state ("reintentar").
func (v *View) Refresh(ctx context.Context) Snapshot {
	v.mu.Lock()
	state := v.state
	v.mu.Unlock()
	return v.load(ctx, state)
}

// SetState replaces the filter state and fetches.
func (v *View) SetState(ctx context.Context, state FilterState) Snapshot {
	return v.load(ctx, state.clone())
}

// Apply runs a filter transition and fetches.
func (v *View) Apply(ctx context.Context, key, value string) Snapshot {
	return v.load(ctx, v.State().Apply(key, value))
}

// ToggleSort flips or selects the sort column and fetches. Columns that
// are not sortable are ignored.
func (v *View) ToggleSort(ctx context.Context, column string) Snapshot {
	if !v.sortable(column) {
		return v.Snapshot()
	}
	return v.load(ctx, v.State().ToggleSort(column))
}

// GoTo navigates to page, clamped into [1, TotalPages] of the last total.
func (v *View) GoTo(ctx context.Context, page int) Snapshot {
	v.mu.Lock()
	pager := NewPager(v.total, v.state.Page, v.state.PageSize)
	state := v.state.WithPage(pager.Clamp(page))
	v.mu.Unlock()
	return v.load(ctx, state)
}

// SetPageSize changes the page size and returns to page 1.
func (v *View) SetPageSize(ctx context.Context, size int) Snapshot {
	state := v.State()
	if size <= 0 {
		size = DefaultPageSize
	}
	state.PageSize = size
	state.Page = 1
	return v.load(ctx, state)
}

// Delete removes a row after confirmation. Declining makes no calls.
// On success the row is dropped locally without a re-fetch.
func (v *View) Delete(ctx context.Context, id string, confirm ConfirmFunc) (bool, error) {
	if v.cfg.Delete == nil {
		return false, errNoDelete
	}
	record := v.row(id)
	if record == nil {
		record = backend.Record{"id": id}
	}
	if confirm != nil && !confirm(record) {
		return false, nil
	}
	if err := v.cfg.Delete(ctx, id); err != nil {
		return false, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, row := range v.rows {
		if row.ID() == id {
			v.rows = append(v.rows[:i:i], v.rows[i+1:]...)
			if v.total > 0 {
				v.total--
			}
			break
		}
	}
	return true, nil
}

// Snapshot returns the current state without fetching.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Close cancels any in-flight fetch.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.loading = false
}

// LastUsed reports when the view was last loaded.
func (v *View) LastUsed() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastUsed
}

func (v *View) load(ctx context.Context, state FilterState) Snapshot {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.state = state
	v.loading = true
	v.lastUsed = time.Now()
	v.mu.Unlock()

	page, err := v.cfg.Fetch(fetchCtx, state)
	if err == nil && page.Total > 0 {
		// the total shrank under the requested page: serve the last one
		if last := NewPager(page.Total, 1, state.PageSize).TotalPages; state.Page > last && v.current(gen) {
			return v.load(ctx, state.WithPage(last))
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	cancel()
	if gen != v.gen {
		return v.supersededLocked(state, page, err)
	}
	v.cancel = nil
	v.loading = false
	if err != nil {
		v.err = err
		return v.snapshotLocked()
	}
	v.err = nil
	v.loaded = true
	v.fetchedAt = time.Now()
	v.rows = append([]backend.Record(nil), page.Rows...)
	v.total = page.Total
	if v.total < len(v.rows) {
		v.total = len(v.rows)
	}
	return v.snapshotLocked()
}

func (v *View) current(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return gen == v.gen
}

// supersededLocked answers a request whose result no longer updates the
// view. A completed fetch is returned as is; a cancelled one reports its own
// state as still loading.
func (v *View) supersededLocked(state FilterState, page backend.Page, err error) Snapshot {
	snap := Snapshot{
		State:      state.clone(),
		Rows:       []backend.Record{},
		Columns:    v.cfg.Columns,
		Actions:    v.cfg.Actions,
		Superseded: true,
	}
	if err != nil {
		snap.Loading = true
		snap.Pager = NewPager(0, state.Page, state.PageSize)
		return snap
	}
	snap.Rows = append(snap.Rows, page.Rows...)
	snap.Total = max(page.Total, len(page.Rows))
	snap.Pager = NewPager(snap.Total, state.Page, state.PageSize)
	snap.Loaded = true
	snap.FetchedAt = time.Now()
	return snap
}

func (v *View) snapshotLocked() Snapshot {
	rows := make([]backend.Record, len(v.rows))
	copy(rows, v.rows)
	return Snapshot{
		State:     v.state.clone(),
		Rows:      rows,
		Total:     v.total,
		Pager:     NewPager(v.total, v.state.Page, v.state.PageSize),
		Columns:   v.cfg.Columns,
		Actions:   v.cfg.Actions,
		Loading:   v.loading,
		Err:       v.err,
		Loaded:    v.loaded,
		FetchedAt: v.fetchedAt,
	}
}

func (v *View) row(id string) backend.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, row := range v.rows {
		if row.ID() == id {
			return row.Clone()
		}
	}
	return nil
}

func (v *View) sortable(column string) bool {
	if len(v.cfg.Columns) == 0 {
		return column != ""
	}
	for _, col := range v.cfg.Columns {
		if col.Key == column {
			return col.Sortable
		}
	}
	return false
}
