package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var errMissingStatsSource = errors.New("dashboard: stats source not configured")

// Options configures the Aggregator. Collaborators are interfaces so the web
// layer and tests can swap them.
type Options struct {
	Definitions *Registry
	Stats       StatsSource
	Renderer    ChartRenderer
	Cache       RenderCache
	Telemetry   Telemetry
	// Theme is part of the render cache key.
	Theme string
	Now   func() time.Time
}

// Aggregator turns a dashboard definition plus fetched statistics into a View.
type Aggregator struct {
	opts Options
}

// NewAggregator builds an Aggregator with safe defaults.
func NewAggregator(opts Options) *Aggregator {
	if opts.Definitions == nil {
		opts.Definitions = NewRegistry()
	}
	if opts.Renderer == nil {
		opts.Renderer = NewEChartsRenderer(WithChartTheme(opts.Theme))
	}
	if opts.Cache == nil {
		opts.Cache = noopCache{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Aggregator{opts: opts}
}

// Definitions exposes the registry backing the aggregator.
func (a *Aggregator) Definitions() *Registry {
	return a.opts.Definitions
}

// Load fetches the statistics for code and renders every card and chart.
// Any failure returns an error and no partial view.
func (a *Aggregator) Load(ctx context.Context, code, locale string) (View, error) {
	if a.opts.Stats == nil {
		return View{}, errMissingStatsSource
	}
	def, err := a.opts.Definitions.Lookup(code)
	if err != nil {
		return View{}, err
	}
	if locale == "" {
		locale = DefaultLocale
	}
	started := a.opts.Now()
	stats, err := a.opts.Stats.FetchStats(ctx, def.StatsPath)
	if err != nil {
		return View{}, err
	}

	datasets := make([]Dataset, len(def.Charts))
	for i, chart := range def.Charts {
		data, err := stats.Dataset(chart.DataKey)
		if err != nil {
			return View{}, err
		}
		datasets[i] = data
	}
	totals := make([]float64, len(def.Cards))
	for i, card := range def.Cards {
		v, err := stats.Total(card.TotalKey)
		if err != nil {
			return View{}, err
		}
		totals[i] = v
	}

	printer := printerFor(locale)
	view := View{
		Code:        def.Code,
		Title:       def.TitleForLocale(locale),
		Cards:       make([]CardView, len(def.Cards)),
		Charts:      make([]ChartView, len(def.Charts)),
		GeneratedAt: a.opts.Now(),
	}
	for i, card := range def.Cards {
		view.Cards[i] = CardView{
			Label: card.LabelForLocale(locale),
			Value: formatCard(printer, card.Format, totals[i]),
			Raw:   totals[i],
			Icon:  card.Icon,
		}
	}
	for i, chart := range def.Charts {
		title := chart.TitleForLocale(locale)
		data := datasets[i]
		key := fmt.Sprintf("%s:%s:%s:%s:%s", def.Code, chart.ID, locale, a.opts.Theme, configHash(struct {
			Chart ChartDescriptor
			Title string
			Data  Dataset
		}{chart, title, data}))
		rendered, err := a.opts.Cache.GetOrRender(key, func() (ChartView, error) {
			return a.opts.Renderer.Render(chart, title, data)
		})
		if err != nil {
			return View{}, fmt.Errorf("dashboard: render chart %s: %w", chart.ID, err)
		}
		view.Charts[i] = rendered
	}

	a.opts.Telemetry.Record(ctx, "dashboard.load", map[string]any{
		"dashboard": def.Code,
		"cards":     len(view.Cards),
		"charts":    len(view.Charts),
		"elapsed":   a.opts.Now().Sub(started).String(),
	})
	return view, nil
}

// PurgeCache drops every cached chart.
func (a *Aggregator) PurgeCache() {
	a.opts.Cache.Purge()
}

func printerFor(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return message.NewPrinter(tag)
}

func formatCard(p *message.Printer, format string, v float64) string {
	switch format {
	case CardMoney:
		return p.Sprintf("$ %.0f", math.Round(v))
	case CardPercent:
		return p.Sprintf("%.1f %%", v)
	default:
		if v == math.Trunc(v) {
			return p.Sprintf("%d", int64(v))
		}
		return p.Sprintf("%.2f", v)
	}
}

type noopCache struct{}

func (noopCache) GetOrRender(_ string, render func() (ChartView, error)) (ChartView, error) {
	return render()
}

func (noopCache) Purge() {}
