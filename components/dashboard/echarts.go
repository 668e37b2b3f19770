package dashboard

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "340px"

// ChartRenderer turns a descriptor and its dataset into an ECharts snippet.
type ChartRenderer interface {
	Render(desc ChartDescriptor, title string, data Dataset) (ChartView, error)
}

// EChartsRenderer renders server-side chart markup with go-echarts.
type EChartsRenderer struct {
	theme      string
	assetsHost string
	height     string
}

// EChartsOption customizes the renderer.
type EChartsOption func(*EChartsRenderer)

// WithChartTheme sets the ECharts theme (defaults to Westeros).
func WithChartTheme(theme string) EChartsOption {
	return func(r *EChartsRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost loads the ECharts scripts from another host.
func WithChartAssetsHost(host string) EChartsOption {
	return func(r *EChartsRenderer) {
		r.assetsHost = host
	}
}

// WithChartHeight overrides the canvas height.
func WithChartHeight(height string) EChartsOption {
	return func(r *EChartsRenderer) {
		if height != "" {
			r.height = height
		}
	}
}

// NewEChartsRenderer builds a renderer.
func NewEChartsRenderer(options ...EChartsOption) *EChartsRenderer {
	r := &EChartsRenderer{theme: types.ThemeWesteros, height: defaultChartHeight}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Theme returns the configured theme.
func (r *EChartsRenderer) Theme() string {
	return r.theme
}

// Render satisfies ChartRenderer.
func (r *EChartsRenderer) Render(desc ChartDescriptor, title string, data Dataset) (ChartView, error) {
	var (
		renderer render.Renderer
		err      error
	)
	switch strings.ToLower(desc.Kind) {
	case KindPie:
		renderer, err = r.pie(desc, title, data)
	case KindBar:
		renderer, err = r.bar(desc, title, data)
	case KindLine:
		renderer, err = r.line(desc, title, data)
	default:
		return ChartView{}, fmt.Errorf("dashboard: unsupported chart kind %q", desc.Kind)
	}
	if err != nil {
		return ChartView{}, err
	}
	snippet := renderer.RenderSnippet()
	return ChartView{
		ID:      desc.ID,
		Title:   title,
		Kind:    desc.Kind,
		Element: template.HTML(snippet.Element), //nolint:gosec
		Script:  template.HTML(snippet.Script),  //nolint:gosec
		Option:  snippet.Option,
	}, nil
}

func (r *EChartsRenderer) pie(desc ChartDescriptor, title string, data Dataset) (render.Renderer, error) {
	if !data.Categorical || len(data.Series) != 1 {
		return nil, fmt.Errorf("dashboard: pie chart %s needs a counts data key", desc.ID)
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(r.globalOptions(desc, title)...)
	values := data.Series[0].Values
	items := make([]opts.PieData, len(data.Labels))
	for i, label := range data.Labels {
		items[i] = opts.PieData{Name: displayLabel(label), Value: values[i], ItemStyle: itemStyle(desc.ColorMap, label)}
	}
	pie.AddSeries(title, items, charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}))
	return pie, nil
}

func (r *EChartsRenderer) bar(desc ChartDescriptor, title string, data Dataset) (render.Renderer, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalOptions(desc, title)...)
	bar.SetXAxis(displayLabels(data.Labels))
	for _, s := range data.Series {
		items := make([]opts.BarData, len(s.Values))
		for i, v := range s.Values {
			item := opts.BarData{Name: displayLabel(data.Labels[i]), Value: v}
			if data.Categorical {
				item.ItemStyle = itemStyle(desc.ColorMap, data.Labels[i])
			}
			items[i] = item
		}
		bar.AddSeries(displayLabel(s.Name), items, seriesStyle(desc.ColorMap, s.Name, data.Categorical)...)
	}
	return bar, nil
}

func (r *EChartsRenderer) line(desc ChartDescriptor, title string, data Dataset) (render.Renderer, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(r.globalOptions(desc, title)...)
	line.SetXAxis(displayLabels(data.Labels))
	for _, s := range data.Series {
		items := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			items[i] = opts.LineData{Name: displayLabel(data.Labels[i]), Value: v}
		}
		options := append(seriesStyle(desc.ColorMap, s.Name, data.Categorical),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		line.AddSeries(displayLabel(s.Name), items, options...)
	}
	return line, nil
}

func (r *EChartsRenderer) globalOptions(desc ChartDescriptor, title string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:   r.theme,
		Width:   "100%",
		Height:  r.height,
		ChartID: "chart_" + desc.ID,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func itemStyle(colors map[string]string, key string) *opts.ItemStyle {
	if color := colors[key]; color != "" {
		return &opts.ItemStyle{Color: color}
	}
	return nil
}

func seriesStyle(colors map[string]string, name string, categorical bool) []charts.SeriesOpts {
	if categorical {
		return nil
	}
	color := colors[name]
	if color == "" {
		return nil
	}
	return []charts.SeriesOpts{
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color}),
	}
}

// displayLabel turns status codes such as en_mantenimiento into text.
func displayLabel(label string) string {
	return strings.ReplaceAll(label, "_", " ")
}

func displayLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = displayLabel(l)
	}
	return out
}
