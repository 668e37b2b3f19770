package listview

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// LocalSource filters, sorts and pages an in-memory record set. Catalog
// resources that the backend only returns whole are listed through it.
type LocalSource struct {
	rows       []backend.Record
	searchKeys []string
	dateKey    string
	lang       language.Tag
}

// LocalOption customizes a LocalSource.
type LocalOption func(*LocalSource)

// WithSearchKeys restricts free-text search to the given keys.
func WithSearchKeys(keys ...string) LocalOption {
	return func(s *LocalSource) {
		s.searchKeys = append([]string(nil), keys...)
	}
}

// WithDateKey names the record key used by the date range filter.
func WithDateKey(key string) LocalOption {
	return func(s *LocalSource) {
		s.dateKey = key
	}
}

// WithCollation sets the language used to order strings.
func WithCollation(tag language.Tag) LocalOption {
	return func(s *LocalSource) {
		s.lang = tag
	}
}

// NewLocalSource wraps rows. The slice is not copied.
func NewLocalSource(rows []backend.Record, opts ...LocalOption) *LocalSource {
	s := &LocalSource{rows: rows, lang: language.Spanish}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch satisfies FetchFunc.
func (s *LocalSource) Fetch(ctx context.Context, state FilterState) (backend.Page, error) {
	if err := ctx.Err(); err != nil {
		return backend.Page{}, err
	}
	return s.Page(state), nil
}

// Page applies state to the rows and returns the requested page.
func (s *LocalSource) Page(state FilterState) backend.Page {
	matched := s.Filter(state)
	s.Sort(matched, state.SortBy, state.SortOrder)
	pager := NewPager(len(matched), state.Page, state.PageSize)
	start := pager.Offset()
	end := start + pager.RowsOnPage()
	if start > len(matched) {
		start, end = len(matched), len(matched)
	}
	if state.Page > pager.TotalPages {
		// past the end: empty page, same as a remote backend
		start, end = len(matched), len(matched)
	}
	return backend.Page{Rows: matched[start:end], Total: len(matched)}
}

// Filter returns the rows matching search, entity filters and dates.
func (s *LocalSource) Filter(state FilterState) []backend.Record {
	needle := fold(strings.TrimSpace(state.Search))
	out := make([]backend.Record, 0, len(s.rows))
	for _, row := range s.rows {
		if needle != "" && !s.matchesSearch(row, needle) {
			continue
		}
		if !matchesFilters(row, state.EntityFilters) {
			continue
		}
		if !s.matchesDates(row, state) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Sort orders rows in place by key using Spanish collation for text and
// numeric comparison when both values parse as numbers.
func (s *LocalSource) Sort(rows []backend.Record, key, order string) {
	if key == "" {
		return
	}
	coll := collate.New(s.lang, collate.IgnoreCase, collate.IgnoreDiacritics)
	desc := normalizeOrder(order) == SortDesc
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := compareValues(coll, rows[i], rows[j], key)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareValues(coll *collate.Collator, a, b backend.Record, key string) int {
	if fa, ok := a.Float(key); ok {
		if fb, ok := b.Float(key); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ta, ok := a.Time(key); ok {
		if tb, ok := b.Time(key); ok {
			return ta.Compare(tb)
		}
	}
	return coll.CompareString(a.String(key), b.String(key))
}

func (s *LocalSource) matchesSearch(row backend.Record, needle string) bool {
	keys := s.searchKeys
	if len(keys) == 0 {
		for key := range row {
			if strings.Contains(fold(row.String(key)), needle) {
				return true
			}
		}
		return false
	}
	for _, key := range keys {
		if strings.Contains(fold(row.String(key)), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(row backend.Record, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" {
			continue
		}
		if !strings.EqualFold(row.String(key), want) {
			return false
		}
	}
	return true
}

func (s *LocalSource) matchesDates(row backend.Record, state FilterState) bool {
	if s.dateKey == "" || (state.DateFrom == nil && state.DateTo == nil) {
		return true
	}
	t, ok := row.Time(s.dateKey)
	if !ok {
		return false
	}
	day := t.Format("2006-01-02")
	if state.DateFrom != nil && day < state.DateFrom.Format("2006-01-02") {
		return false
	}
	if state.DateTo != nil && day > state.DateTo.Format("2006-01-02") {
		return false
	}
	return true
}

var foldReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func fold(s string) string {
	return foldReplacer.Replace(strings.ToLower(s))
}
