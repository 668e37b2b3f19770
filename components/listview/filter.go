package listview

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Reserved filter keys. Every other key is an entity filter.
const (
	KeySearch    = "search"
	KeySortBy    = "sortBy"
	KeySortOrder = "sortOrder"
	KeyDateFrom  = "dateFrom"
	KeyDateTo    = "dateTo"
	KeyPage      = "page"
	KeyPageSize  = "pageSize"
)

// DefaultPageSize is used when a view does not configure one.
const DefaultPageSize = 15

// PageSizeOptions lists the sizes offered by the page-size selector.
var PageSizeOptions = []int{10, 15, 25, 50}

// FilterState is the current search, filter, sort and pagination selection
// of a list view. Values are immutable: transitions return a new state.
type FilterState struct {
	Search        string
	EntityFilters map[string]string
	DateFrom      *time.Time
	DateTo        *time.Time
	SortBy        string
	SortOrder     string
	Page          int
	PageSize      int
}

// NewFilterState returns the initial state for a view.
func NewFilterState(pageSize int, sortBy, sortOrder string) FilterState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return FilterState{
		EntityFilters: map[string]string{},
		SortBy:        sortBy,
		SortOrder:     normalizeOrder(sortOrder),
		Page:          1,
		PageSize:      pageSize,
	}
}

// Apply sets key to value and resets the page to 1 unless key is "page".
// Values are coerced to the field type; malformed numbers fall back to the
// defaults and malformed dates clear the bound.
func (s FilterState) Apply(key, value string) FilterState {
	next := s.clone()
	switch key {
	case KeySearch:
		next.Search = value
	case KeySortBy:
		next.SortBy = value
	case KeySortOrder:
		next.SortOrder = normalizeOrder(value)
	case KeyDateFrom:
		next.DateFrom = parseDate(value)
	case KeyDateTo:
		next.DateTo = parseDate(value)
	case KeyPage:
		page, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || page < 1 {
			page = 1
		}
		next.Page = page
		return next
	case KeyPageSize:
		size, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || size < 1 {
			size = DefaultPageSize
		}
		next.PageSize = size
	default:
		if key == "" {
			return next
		}
		if value == "" {
			delete(next.EntityFilters, key)
		} else {
			next.EntityFilters[key] = value
		}
	}
	next.Page = 1
	return next
}

// ToggleSort flips the order when column is already the sort column,
// otherwise sorts by column ascending. The page resets to 1.
func (s FilterState) ToggleSort(column string) FilterState {
	next := s.clone()
	if next.SortBy == column {
		if next.SortOrder == SortAsc {
			next.SortOrder = SortDesc
		} else {
			next.SortOrder = SortAsc
		}
	} else {
		next.SortBy = column
		next.SortOrder = SortAsc
	}
	next.Page = 1
	return next
}

// WithPage moves to page without touching any other selection.
func (s FilterState) WithPage(page int) FilterState {
	next := s.clone()
	if page < 1 {
		page = 1
	}
	next.Page = page
	return next
}

// Clear drops search, entity filters and the date range.
func (s FilterState) Clear() FilterState {
	next := s.clone()
	next.Search = ""
	next.EntityFilters = map[string]string{}
	next.DateFrom = nil
	next.DateTo = nil
	next.Page = 1
	return next
}

// Filter returns the entity filter stored under key.
func (s FilterState) Filter(key string) string {
	return s.EntityFilters[key]
}

// Active reports whether any narrowing selection is set.
func (s FilterState) Active() bool {
	return s.Search != "" || len(s.EntityFilters) > 0 || s.DateFrom != nil || s.DateTo != nil
}

// Query encodes the state as URL parameters for admin links.
func (s FilterState) Query() url.Values {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	set(KeySearch, s.Search)
	set(KeySortBy, s.SortBy)
	if s.SortBy != "" {
		set(KeySortOrder, s.SortOrder)
	}
	set(KeyDateFrom, formatDate(s.DateFrom))
	set(KeyDateTo, formatDate(s.DateTo))
	for _, key := range s.filterKeys() {
		set(key, s.EntityFilters[key])
	}
	if s.Page > 1 {
		values.Set(KeyPage, strconv.Itoa(s.Page))
	}
	if s.PageSize > 0 {
		values.Set(KeyPageSize, strconv.Itoa(s.PageSize))
	}
	return values
}

// Encode returns the URL query string for the state.
func (s FilterState) Encode() string {
	return s.Query().Encode()
}

// ListQuery converts the state into backend list parameters.
func (s FilterState) ListQuery() backend.ListQuery {
	filters := make(map[string]string, len(s.EntityFilters))
	for k, v := range s.EntityFilters {
		filters[k] = v
	}
	return backend.ListQuery{
		Page:      s.Page,
		Limit:     s.PageSize,
		Search:    s.Search,
		SortBy:    s.SortBy,
		SortOrder: s.SortOrder,
		DateFrom:  formatDate(s.DateFrom),
		DateTo:    formatDate(s.DateTo),
		Filters:   filters,
	}
}

// FilterFromQuery rebuilds a state from URL parameters on top of base.
// Only keys listed in allowed become entity filters; nil allows any key.
func FilterFromQuery(params map[string]string, base FilterState, allowed []string) FilterState {
	state := base.clone()
	permit := map[string]bool{}
	for _, key := range allowed {
		permit[key] = true
	}
	for key, value := range params {
		switch key {
		case KeySearch:
			state.Search = strings.TrimSpace(value)
		case KeySortBy:
			state.SortBy = value
		case KeySortOrder:
			state.SortOrder = normalizeOrder(value)
		case KeyDateFrom:
			state.DateFrom = parseDate(value)
		case KeyDateTo:
			state.DateTo = parseDate(value)
		case KeyPage, KeyPageSize:
		default:
			if value == "" || (allowed != nil && !permit[key]) {
				continue
			}
			state.EntityFilters[key] = value
		}
	}
	if size, err := strconv.Atoi(params[KeyPageSize]); err == nil && size > 0 {
		state.PageSize = size
	}
	state.Page = 1
	if page, err := strconv.Atoi(params[KeyPage]); err == nil && page > 1 {
		state.Page = page
	}
	return state
}

// FilterFromListQuery is the inverse of ListQuery, used by list servers.
func FilterFromListQuery(q backend.ListQuery) FilterState {
	state := NewFilterState(q.Limit, q.SortBy, q.SortOrder)
	state.Search = q.Search
	state.DateFrom = parseDate(q.DateFrom)
	state.DateTo = parseDate(q.DateTo)
	for k, v := range q.Filters {
		if v != "" {
			state.EntityFilters[k] = v
		}
	}
	if q.Page > 1 {
		state.Page = q.Page
	}
	return state
}

func (s FilterState) clone() FilterState {
	next := s
	next.EntityFilters = make(map[string]string, len(s.EntityFilters))
	for k, v := range s.EntityFilters {
		next.EntityFilters[k] = v
	}
	if next.PageSize <= 0 {
		next.PageSize = DefaultPageSize
	}
	if next.Page < 1 {
		next.Page = 1
	}
	return next
}

func (s FilterState) filterKeys() []string {
	keys := make([]string, 0, len(s.EntityFilters))
	for k := range s.EntityFilters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeOrder(order string) string {
	if strings.EqualFold(strings.TrimSpace(order), SortDesc) {
		return SortDesc
	}
	return SortAsc
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil
	}
	return &t
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// DateValue renders an optional bound for date inputs.
func DateValue(t *time.Time) string {
	return formatDate(t)
}
