package listview

import (
	"strconv"
	"strings"
	"time"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// Column formats.
const (
	FormatText     = "text"
	FormatDate     = "date"
	FormatDateTime = "datetime"
	FormatMoney    = "money"
	FormatStatus   = "status"
	FormatBool     = "bool"
)

// ColumnSchema describes one table column.
type ColumnSchema struct {
	Key      string `yaml:"key" json:"key"`
	Label    string `yaml:"label,omitempty" json:"label,omitempty"`
	Sortable bool   `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	Format   string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Title returns the label, deriving one from the key when empty.
func (c ColumnSchema) Title() string {
	if c.Label != "" {
		return c.Label
	}
	words := strings.ReplaceAll(strcase.ToSnake(c.Key), "_", " ")
	if words == "" {
		return ""
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

// Cell renders the column value of record as display text.
func (c ColumnSchema) Cell(record backend.Record) string {
	switch c.Format {
	case FormatDate:
		if t, ok := record.Time(c.Key); ok {
			return t.Format("02/01/2006")
		}
	case FormatDateTime:
		if t, ok := record.Time(c.Key); ok {
			return t.Format("02/01/2006 15:04")
		}
	case FormatMoney:
		if v, ok := record.Float(c.Key); ok {
			return formatMoney(v)
		}
	case FormatBool:
		switch strings.ToLower(record.String(c.Key)) {
		case "true", "1", "si", "sí":
			return "Sí"
		case "false", "0", "no":
			return "No"
		}
	case FormatStatus:
		return strings.ReplaceAll(record.String(c.Key), "_", " ")
	}
	return record.String(c.Key)
}

// formatMoney renders 1234567.5 as $1.234.567,50.
func formatMoney(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	raw := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(raw, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "," + frac
	if negative {
		out = "-" + out
	}
	return out
}

// FormatTime renders timestamps the way list cells do.
func FormatTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// Actions are the optional row callbacks a host page can expose.
type Actions struct {
	OnView   func(backend.Record) string
	OnEdit   func(backend.Record) string
	OnDelete func(backend.Record) string
}

// Any reports whether at least one action is configured.
func (a Actions) Any() bool {
	return a.OnView != nil || a.OnEdit != nil || a.OnDelete != nil
}
