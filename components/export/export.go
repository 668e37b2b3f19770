package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Paging limits used when collecting rows from the backend.
const (
	BatchSize = 500
	MaxRows   = 10000
)

// Table is a rendered export: column labels plus display rows.
type Table struct {
	Title       string
	Columns     []listview.ColumnSchema
	Rows        []backend.Record
	GeneratedAt time.Time
	// Truncated is set when the row cap cut the export short.
	Truncated bool
}

// NewTable builds a table for columns and rows.
func NewTable(title string, columns []listview.ColumnSchema, rows []backend.Record) Table {
	return Table{Title: title, Columns: columns, Rows: rows, GeneratedAt: time.Now()}
}

// Header returns the column labels.
func (t Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Title()
	}
	return out
}

// Cells renders row i as display text.
func (t Table) Cells(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Cell(t.Rows[i])
	}
	return out
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Supported reports whether format has a writer.
func Supported(format string) bool {
	switch format {
	case FormatCSV, FormatXLSX, FormatPDF:
		return true
	}
	return false
}

// Filename builds a download name such as ordenes_trabajo_20240520.xlsx.
func Filename(title, format string, at time.Time) string {
	base := strcase.ToSnake(strings.Map(func(r rune) rune {
		switch r {
		case 'á':
			return 'a'
		case 'é':
			return 'e'
		case 'í':
			return 'i'
		case 'ó':
			return 'o'
		case 'ú', 'ü':
			return 'u'
		case 'ñ':
			return 'n'
		}
		return r
	}, strings.ToLower(title)))
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s_%s.%s", base, at.Format("20060102"), format)
}

// Collect pages through fetch in batches of BatchSize until every row
// matching state is read or MaxRows is reached.
func Collect(ctx context.Context, fetch listview.FetchFunc, state listview.FilterState) ([]backend.Record, bool, error) {
	return collect(ctx, fetch, state, BatchSize, MaxRows)
}

func collect(ctx context.Context, fetch listview.FetchFunc, state listview.FilterState, batch, limit int) ([]backend.Record, bool, error) {
	state = state.WithPage(1)
	state.PageSize = batch
	var rows []backend.Record
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		result, err := fetch(ctx, state.WithPage(page))
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, result.Rows...)
		if len(rows) >= limit {
			return rows[:limit], result.Total > limit, nil
		}
		if len(result.Rows) < batch || len(rows) >= result.Total {
			return rows, false, nil
		}
	}
}
