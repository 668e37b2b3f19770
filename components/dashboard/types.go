package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"time"
)

// Chart kinds.
const (
	KindPie  = "pie"
	KindBar  = "bar"
	KindLine = "line"
)

// Card value formats.
const (
	CardNumber  = "number"
	CardMoney   = "money"
	CardPercent = "percent"
)

// AggregateStats is the pre-aggregated statistics object a dashboard
// endpoint returns. It is read-only and replaced wholesale on every load.
type AggregateStats struct {
	Counts     map[string]map[string]int `json:"counts"`
	Totals     map[string]float64        `json:"totals"`
	TimeSeries []TimePoint               `json:"timeSeries,omitempty"`
}

// TimePoint is one entry of a time series: {"date": "2024-05", "<metric>": n}.
type TimePoint struct {
	Date    string
	Metrics map[string]float64
}

// UnmarshalJSON reads the date plus every numeric member as a metric.
func (p *TimePoint) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	p.Date = ""
	p.Metrics = make(map[string]float64, len(raw))
	for key, value := range raw {
		if key == "date" {
			p.Date = fmt.Sprint(value)
			continue
		}
		switch v := value.(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return fmt.Errorf("dashboard: metric %s: %w", key, err)
			}
			p.Metrics[key] = f
		case nil:
		default:
			return fmt.Errorf("dashboard: metric %s is not numeric", key)
		}
	}
	if p.Date == "" {
		return fmt.Errorf("dashboard: time series point without date")
	}
	return nil
}

// MarshalJSON writes the flat representation.
func (p TimePoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Metrics)+1)
	for k, v := range p.Metrics {
		out[k] = v
	}
	out["date"] = p.Date
	return json.Marshal(out)
}

// ChartDescriptor declares one chart widget.
type ChartDescriptor struct {
	ID             string            `yaml:"id" json:"id"`
	Title          string            `yaml:"title" json:"title"`
	TitleLocalized map[string]string `yaml:"title_localized,omitempty" json:"title_localized,omitempty"`
	Kind           string            `yaml:"kind" json:"kind"`
	// DataKey selects the data: "counts.<name>" for a category breakdown
	// or "timeSeries.<metric>[,<metric>...]" for one series per metric.
	DataKey  string            `yaml:"data_key" json:"data_key"`
	ColorMap map[string]string `yaml:"color_map,omitempty" json:"color_map,omitempty"`
}

// CardDescriptor declares one summary card fed by a total.
type CardDescriptor struct {
	Label          string            `yaml:"label" json:"label"`
	LabelLocalized map[string]string `yaml:"label_localized,omitempty" json:"label_localized,omitempty"`
	TotalKey       string            `yaml:"total_key" json:"total_key"`
	Format         string            `yaml:"format,omitempty" json:"format,omitempty"`
	Icon           string            `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// Definition is one dashboard page.
type Definition struct {
	Code           string            `yaml:"code" json:"code"`
	Title          string            `yaml:"title" json:"title"`
	TitleLocalized map[string]string `yaml:"title_localized,omitempty" json:"title_localized,omitempty"`
	StatsPath      string            `yaml:"stats_path" json:"stats_path"`
	Cards          []CardDescriptor  `yaml:"cards,omitempty" json:"cards,omitempty"`
	Charts         []ChartDescriptor `yaml:"charts,omitempty" json:"charts,omitempty"`
}

// View is a fully rendered dashboard. It is only produced when every card
// and chart could be built.
type View struct {
	Code        string      `json:"code"`
	Title       string      `json:"title"`
	Cards       []CardView  `json:"cards"`
	Charts      []ChartView `json:"charts"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// CardView is a rendered card.
type CardView struct {
	Label string  `json:"label"`
	Value string  `json:"value"`
	Raw   float64 `json:"raw"`
	Icon  string  `json:"icon,omitempty"`
}

// ChartView is a rendered chart snippet.
type ChartView struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Kind    string        `json:"kind"`
	Element template.HTML `json:"element"`
	Script  template.HTML `json:"script"`
	Option  string        `json:"option"`
}

// sortedKeys returns the keys of a count map in ascending order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
