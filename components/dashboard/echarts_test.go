package dashboard

import (
	"testing"

	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEChartsRendererPie(t *testing.T) {
	r := NewEChartsRenderer()
	assert.Equal(t, types.ThemeWesteros, r.Theme())

	desc := ChartDescriptor{ID: "estado", Kind: KindPie, DataKey: "counts.porEstado", ColorMap: map[string]string{"operativo": "#16a34a"}}
	data := Dataset{
		Labels:      []string{"en_mantenimiento", "operativo"},
		Series:      []Series{{Name: "porEstado", Values: []float64{5, 30}}},
		Categorical: true,
	}
	view, err := r.Render(desc, "Equipos por estado", data)
	require.NoError(t, err)
	assert.Equal(t, "estado", view.ID)
	assert.Equal(t, KindPie, view.Kind)
	assert.Contains(t, string(view.Element), "chart_estado")
	assert.Contains(t, view.Option, "#16a34a")
	assert.Contains(t, view.Option, "en mantenimiento")
	assert.NotEmpty(t, view.Script)
}

func TestEChartsRendererPieRejectsTimeSeries(t *testing.T) {
	_, err := NewEChartsRenderer().Render(
		ChartDescriptor{ID: "x", Kind: KindPie},
		"x",
		Dataset{Labels: []string{"2024-05"}, Series: []Series{{Name: "a", Values: []float64{1}}}},
	)
	require.Error(t, err)
}

func TestEChartsRendererLineSeriesColors(t *testing.T) {
	desc := ChartDescriptor{ID: "actividad", Kind: KindLine, ColorMap: map[string]string{"ordenes": "#2563eb"}}
	data := Dataset{
		Labels: []string{"2024-04", "2024-05"},
		Series: []Series{
			{Name: "visitas", Values: []float64{10, 12}},
			{Name: "ordenes", Values: []float64{4, 6}},
		},
	}
	view, err := NewEChartsRenderer(WithChartTheme("dark"), WithChartHeight("200px")).Render(desc, "Actividad", data)
	require.NoError(t, err)
	assert.Contains(t, view.Option, "#2563eb")
	assert.Contains(t, view.Option, "2024-05")
	assert.Contains(t, string(view.Element), "200px")
}

func TestEChartsRendererBar(t *testing.T) {
	desc := ChartDescriptor{ID: "prioridad", Kind: KindBar, ColorMap: map[string]string{"alta": "#dc2626"}}
	data := Dataset{
		Labels:      []string{"alta", "baja"},
		Series:      []Series{{Name: "porPrioridad", Values: []float64{4, 3}}},
		Categorical: true,
	}
	view, err := NewEChartsRenderer().Render(desc, "Prioridad", data)
	require.NoError(t, err)
	assert.Contains(t, view.Option, "#dc2626")
}

func TestEChartsRendererUnknownKind(t *testing.T) {
	_, err := NewEChartsRenderer().Render(ChartDescriptor{ID: "x", Kind: "radar"}, "x", Dataset{})
	require.Error(t, err)
}
