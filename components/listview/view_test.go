package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

func seedRows(n int) []backend.Record {
	rows := make([]backend.Record, n)
	for i := range rows {
		rows[i] = backend.Record{"id": fmt.Sprint(i + 1), "nombre": fmt.Sprintf("Equipo %02d", i+1)}
	}
	return rows
}

type countingSource struct {
	mu    sync.Mutex
	src   *LocalSource
	calls []FilterState
	err   error
}

func (c *countingSource) Fetch(ctx context.Context, state FilterState) (backend.Page, error) {
	c.mu.Lock()
	c.calls = append(c.calls, state)
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return backend.Page{}, err
	}
	return c.src.Fetch(ctx, state)
}

func newTestView(t *testing.T, src *countingSource, del DeleteFunc) *View {
	t.Helper()
	view, err := NewView(Config{
		Fetch:   src.Fetch,
		Delete:  del,
		Columns: []ColumnSchema{{Key: "nombre", Label: "Nombre", Sortable: true}, {Key: "id", Label: "ID"}},
		Initial: NewFilterState(15, "", ""),
	})
	require.NoError(t, err)
	return view
}

func TestNewViewRequiresFetch(t *testing.T) {
	_, err := NewView(Config{})
	require.Error(t, err)
}

func TestViewPagination(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(37))}
	view := newTestView(t, src, nil)

	snap := view.Refresh(context.Background())
	require.NoError(t, snap.Err)
	assert.Equal(t, 37, snap.Total)
	assert.Len(t, snap.Rows, 15)
	assert.Equal(t, "página 1 de 3", snap.Pager.Label())
	assert.True(t, snap.Pager.HasNext())

	snap = view.GoTo(context.Background(), 3)
	assert.Len(t, snap.Rows, 7)
	assert.False(t, snap.Pager.HasNext())

	snap = view.GoTo(context.Background(), 99)
	assert.Equal(t, 3, snap.State.Page)

	snap = view.SetPageSize(context.Background(), 10)
	assert.Equal(t, 1, snap.State.Page)
	assert.Equal(t, 4, snap.Pager.TotalPages)
}

func TestViewFilterChangeRefetchesFromPageOne(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(37), WithSearchKeys("nombre"))}
	view := newTestView(t, src, nil)
	view.Refresh(context.Background())
	view.GoTo(context.Background(), 2)

	snap := view.Apply(context.Background(), KeySearch, "Equipo 3")
	assert.Equal(t, 1, snap.State.Page)
	assert.Equal(t, 8, snap.Total) // Equipo 30..37
	assert.Len(t, src.calls, 3)
}

func TestViewToggleSortIgnoresUnsortableColumns(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(5))}
	view := newTestView(t, src, nil)
	view.Refresh(context.Background())

	snap := view.ToggleSort(context.Background(), "nombre")
	assert.Equal(t, SortAsc, snap.State.SortOrder)
	snap = view.ToggleSort(context.Background(), "nombre")
	assert.Equal(t, SortDesc, snap.State.SortOrder)
	assert.Equal(t, "Equipo 05", snap.Rows[0].String("nombre"))

	calls := len(src.calls)
	view.ToggleSort(context.Background(), "id")
	assert.Len(t, src.calls, calls)
}

func TestViewFailureKeepsPreviousRows(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(20))}
	view := newTestView(t, src, nil)
	first := view.Refresh(context.Background())
	require.Len(t, first.Rows, 15)

	src.err = errors.New("Error de conexión")
	snap := view.Apply(context.Background(), KeySearch, "x")
	require.Error(t, snap.Err)
	assert.True(t, snap.Stale())
	assert.Len(t, snap.Rows, 15)
	assert.Equal(t, 20, snap.Total)
	assert.False(t, snap.Loading)

	src.err = nil
	snap = view.Refresh(context.Background())
	assert.NoError(t, snap.Err)
	assert.Equal(t, 0, snap.Total)
}

func TestViewDiscardsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex
	fetch := func(ctx context.Context, state FilterState) (backend.Page, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return backend.Page{Rows: []backend.Record{{"id": "old"}}, Total: 1}, nil
		}
		return backend.Page{Rows: []backend.Record{{"id": "new"}}, Total: 1}, nil
	}
	view, err := NewView(Config{Fetch: fetch, Initial: NewFilterState(15, "", "")})
	require.NoError(t, err)

	done := make(chan Snapshot)
	go func() {
		done <- view.Apply(context.Background(), KeySearch, "a")
	}()
	<-started
	latest := view.Apply(context.Background(), KeySearch, "ab")
	close(release)
	stale := <-done

	assert.Equal(t, "new", latest.Rows[0].ID())
	assert.False(t, latest.Superseded)
	// the replaced request answers with its own state and rows only
	assert.True(t, stale.Superseded)
	assert.Equal(t, "a", stale.State.Search)
	assert.Equal(t, "old", stale.Rows[0].ID())
	assert.Equal(t, "ab", view.Snapshot().State.Search)
	assert.Equal(t, "new", view.Snapshot().Rows[0].ID())
}

func TestViewCancelsSupersededFetch(t *testing.T) {
	cancelled := make(chan struct{})
	started := make(chan struct{})
	first := true
	var mu sync.Mutex
	fetch := func(ctx context.Context, state FilterState) (backend.Page, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			close(started)
			select {
			case <-ctx.Done():
				close(cancelled)
				return backend.Page{}, ctx.Err()
			case <-time.After(2 * time.Second):
				return backend.Page{}, errors.New("not cancelled")
			}
		}
		return backend.Page{Rows: []backend.Record{}, Total: 0}, nil
	}
	view, err := NewView(Config{Fetch: fetch, Initial: NewFilterState(15, "", "")})
	require.NoError(t, err)

	go view.Refresh(context.Background())
	<-started
	snap := view.Apply(context.Background(), "estado", "activo")
	assert.NoError(t, snap.Err)
	assert.Equal(t, "activo", snap.State.Filter("estado"))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("expected superseded fetch to be cancelled")
	}
	assert.NoError(t, view.Snapshot().Err)
}

func TestViewDeleteConfirmed(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(5))}
	var deleted []string
	view := newTestView(t, src, func(ctx context.Context, id string) error {
		deleted = append(deleted, id)
		return nil
	})
	view.Refresh(context.Background())

	ok, err := view.Delete(context.Background(), "3", func(record backend.Record) bool {
		assert.Equal(t, "Equipo 03", record.String("nombre"))
		return true
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"3"}, deleted)

	snap := view.Snapshot()
	assert.Len(t, snap.Rows, 4)
	assert.Equal(t, 4, snap.Total)
	for _, row := range snap.Rows {
		assert.NotEqual(t, "3", row.ID())
	}
}

func TestViewDeleteDeclinedMakesNoCalls(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(5))}
	calls := 0
	view := newTestView(t, src, func(ctx context.Context, id string) error {
		calls++
		return nil
	})
	view.Refresh(context.Background())

	ok, err := view.Delete(context.Background(), "2", func(backend.Record) bool { return false })
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, calls)
	assert.Len(t, view.Snapshot().Rows, 5)
}

func TestViewDeleteFailureKeepsRow(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(5))}
	view := newTestView(t, src, func(ctx context.Context, id string) error {
		return errors.New("boom")
	})
	view.Refresh(context.Background())

	ok, err := view.Delete(context.Background(), "2", nil)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Len(t, view.Snapshot().Rows, 5)
}

func TestViewDeleteWithoutDeleter(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(1))}
	view := newTestView(t, src, nil)
	_, err := view.Delete(context.Background(), "1", nil)
	require.Error(t, err)
}

func TestViewSupersededCancelledRequestKeepsItsOwnState(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	fetch := func(ctx context.Context, state FilterState) (backend.Page, error) {
		if state.Search == "A" {
			once.Do(func() { close(started) })
			<-ctx.Done()
			return backend.Page{}, ctx.Err()
		}
		return backend.Page{Rows: []backend.Record{{"id": "B"}}, Total: 1}, nil
	}
	view, err := NewView(Config{Fetch: fetch, Initial: NewFilterState(15, "", "")})
	require.NoError(t, err)

	done := make(chan Snapshot)
	go func() {
		done <- view.Apply(context.Background(), KeySearch, "A")
	}()
	<-started
	latest := view.Apply(context.Background(), KeySearch, "B")
	first := <-done

	assert.Equal(t, "B", latest.State.Search)
	assert.Equal(t, "B", latest.Rows[0].ID())

	assert.True(t, first.Superseded)
	assert.True(t, first.Loading)
	assert.NoError(t, first.Err)
	assert.Equal(t, "A", first.State.Search)
	assert.Empty(t, first.Rows)
}

func TestViewClampsPageBeyondTotal(t *testing.T) {
	src := &countingSource{src: NewLocalSource(seedRows(37))}
	view := newTestView(t, src, nil)

	state := view.State().WithPage(99)
	snap := view.SetState(context.Background(), state)

	require.NoError(t, snap.Err)
	assert.Equal(t, 3, snap.State.Page)
	assert.Equal(t, 3, snap.Pager.Page)
	assert.Len(t, snap.Rows, 7)
	assert.Equal(t, "página 3 de 3", snap.Pager.Label())
	require.Len(t, src.calls, 2)
	assert.Equal(t, 99, src.calls[0].Page)
	assert.Equal(t, 3, src.calls[1].Page)
}

func TestViewEmptyResultKeepsRequestedPage(t *testing.T) {
	src := &countingSource{src: NewLocalSource(nil)}
	view := newTestView(t, src, nil)

	snap := view.SetState(context.Background(), view.State().WithPage(4))
	require.NoError(t, snap.Err)
	assert.Len(t, src.calls, 1)
	assert.Equal(t, 0, snap.Total)
}
