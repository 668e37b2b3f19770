package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	stats AggregateStats
	err   error
	paths []string
}

func (s *stubStats) FetchStats(_ context.Context, path string) (AggregateStats, error) {
	s.paths = append(s.paths, path)
	if s.err != nil {
		return AggregateStats{}, s.err
	}
	return s.stats, nil
}

type countingRenderer struct {
	calls int
	inner ChartRenderer
}

func (r *countingRenderer) Render(desc ChartDescriptor, title string, data Dataset) (ChartView, error) {
	r.calls++
	return r.inner.Render(desc, title, data)
}

func generalStats() AggregateStats {
	return AggregateStats{
		Counts: map[string]map[string]int{
			"equiposPorEstado":    {"operativo": 30, "en_mantenimiento": 5, "fuera_de_servicio": 2},
			"ordenesPorPrioridad": {"alta": 4, "media": 9, "baja": 3},
		},
		Totals: map[string]float64{
			"clientes":        42,
			"equipos":         37,
			"ordenesAbiertas": 16,
			"ingresosMes":     950,
		},
		TimeSeries: []TimePoint{
			{Date: "2024-04", Metrics: map[string]float64{"visitas": 10, "ordenes": 4}},
			{Date: "2024-05", Metrics: map[string]float64{"visitas": 12, "ordenes": 6}},
		},
	}
}

func newTestAggregator(t *testing.T, stats StatsSource, renderer ChartRenderer, cache RenderCache) *Aggregator {
	t.Helper()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	return NewAggregator(Options{
		Definitions: reg,
		Stats:       stats,
		Renderer:    renderer,
		Cache:       cache,
		Now:         func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) },
	})
}

func TestAggregatorLoadBuildsCardsAndCharts(t *testing.T) {
	source := &stubStats{stats: generalStats()}
	agg := newTestAggregator(t, source, nil, nil)

	view, err := agg.Load(context.Background(), "general", "es")
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard/general"}, source.paths)
	assert.Equal(t, "Panel general", view.Title)
	require.Len(t, view.Cards, 4)
	assert.Equal(t, "Clientes", view.Cards[0].Label)
	assert.Equal(t, "42", view.Cards[0].Value)
	assert.Equal(t, float64(950), view.Cards[3].Raw)
	assert.Equal(t, "$ 950", view.Cards[3].Value)
	require.Len(t, view.Charts, 3)
	assert.Equal(t, KindPie, view.Charts[0].Kind)
	assert.Contains(t, string(view.Charts[0].Element), "chart_general_equipos_estado")
	assert.Equal(t, time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC), view.GeneratedAt)
}

func TestAggregatorLoadEnglishTitles(t *testing.T) {
	agg := newTestAggregator(t, &stubStats{stats: generalStats()}, nil, nil)
	view, err := agg.Load(context.Background(), "general", "en")
	require.NoError(t, err)
	assert.Equal(t, "Overview", view.Title)
	assert.Equal(t, "Clients", view.Cards[0].Label)
	assert.Equal(t, "Equipment by status", view.Charts[0].Title)
}

func TestAggregatorLoadNeverReturnsPartialView(t *testing.T) {
	stats := generalStats()
	delete(stats.Counts, "ordenesPorPrioridad")
	renderer := &countingRenderer{inner: NewEChartsRenderer()}
	agg := newTestAggregator(t, &stubStats{stats: stats}, renderer, nil)

	view, err := agg.Load(context.Background(), "general", "es")
	require.Error(t, err)
	assert.True(t, goerrors.HasCategory(err, goerrors.CategoryExternal))
	assert.Empty(t, view.Cards)
	assert.Empty(t, view.Charts)
	assert.Zero(t, renderer.calls, "nothing is rendered once a key is missing")

	stats = generalStats()
	delete(stats.Totals, "ingresosMes")
	_, err = newTestAggregator(t, &stubStats{stats: stats}, nil, nil).Load(context.Background(), "general", "es")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totals.ingresosMes")
}

func TestAggregatorLoadPropagatesFetchErrors(t *testing.T) {
	agg := newTestAggregator(t, &stubStats{err: errors.New("Error de conexión")}, nil, nil)
	_, err := agg.Load(context.Background(), "general", "es")
	require.EqualError(t, err, "Error de conexión")
}

func TestAggregatorLoadUnknownDashboard(t *testing.T) {
	agg := newTestAggregator(t, &stubStats{}, nil, nil)
	_, err := agg.Load(context.Background(), "inventario", "es")
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestAggregatorRequiresStatsSource(t *testing.T) {
	agg := NewAggregator(Options{})
	_, err := agg.Load(context.Background(), "general", "es")
	require.ErrorIs(t, err, errMissingStatsSource)
}

func TestAggregatorCachesChartsUntilPurged(t *testing.T) {
	renderer := &countingRenderer{inner: NewEChartsRenderer()}
	agg := newTestAggregator(t, &stubStats{stats: generalStats()}, renderer, NewChartCache(time.Minute))

	_, err := agg.Load(context.Background(), "general", "es")
	require.NoError(t, err)
	_, err = agg.Load(context.Background(), "general", "es")
	require.NoError(t, err)
	assert.Equal(t, 3, renderer.calls)

	agg.PurgeCache()
	_, err = agg.Load(context.Background(), "general", "es")
	require.NoError(t, err)
	assert.Equal(t, 6, renderer.calls)
}

func TestAggregatorCacheKeyFollowsData(t *testing.T) {
	renderer := &countingRenderer{inner: NewEChartsRenderer()}
	source := &stubStats{stats: generalStats()}
	agg := newTestAggregator(t, source, renderer, NewChartCache(time.Minute))

	_, err := agg.Load(context.Background(), "general", "es")
	require.NoError(t, err)
	source.stats.Counts["equiposPorEstado"]["operativo"] = 31
	_, err = agg.Load(context.Background(), "general", "es")
	require.NoError(t, err)
	assert.Equal(t, 4, renderer.calls)
}

type recordingTelemetry struct {
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.events = append(r.events, event)
}

func TestAggregatorRecordsTelemetry(t *testing.T) {
	tel := &recordingTelemetry{}
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	agg := NewAggregator(Options{Definitions: reg, Stats: &stubStats{stats: generalStats()}, Telemetry: tel})
	_, err = agg.Load(context.Background(), "general", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard.load"}, tel.events)
}

func TestFormatCard(t *testing.T) {
	p := printerFor("es")
	assert.Equal(t, "42", formatCard(p, CardNumber, 42))
	assert.True(t, strings.HasPrefix(formatCard(p, CardMoney, 120), "$ "))
	assert.Contains(t, formatCard(p, CardPercent, 62.5), "62,5")
}
