package dashboard

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPanel(t *testing.T) {
	panels, err := NewPanelRenderer(nil)
	require.NoError(t, err)

	view := View{
		Code: "equipos",
		Cards: []CardView{
			{Label: "Equipos <activos>", Value: "120"},
			{Label: "En mantenimiento", Value: "8"},
		},
		Charts: []ChartView{{
			ID:      "estado",
			Element: `<div id="chart_estado"></div>`,
			Script:  `<script>window.drawn = true;</script>`,
		}},
		GeneratedAt: time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC),
	}
	var buf bytes.Buffer
	require.NoError(t, panels.RenderPanel(view, &buf))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find(".cards .card").Length())
	assert.Equal(t, "120", doc.Find(`[data-card="Equipos <activos>"]`).Text())
	assert.Equal(t, 1, doc.Find(`.chart[data-chart="estado"] #chart_estado`).Length())
	assert.Equal(t, 1, doc.Find(`.chart[data-chart="estado"] script`).Length())
	assert.Equal(t, "2024-03-09 14:05", doc.Find(".generated time").Text())
	assert.NotContains(t, buf.String(), "Equipos <activos>")
}

type failingRenderer struct{}

func (failingRenderer) Render(string, any, ...io.Writer) (string, error) {
	return "", errors.New("template missing")
}

func TestRenderPanelPropagatesErrors(t *testing.T) {
	panels, err := NewPanelRenderer(failingRenderer{})
	require.NoError(t, err)
	require.Error(t, panels.RenderPanel(View{}, io.Discard))

	var empty *PanelRenderer
	require.Error(t, empty.RenderPanel(View{}, io.Discard))
}
