package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Record mirrors a backend resource row. The backend assigns ids; the
// admin never does.
type Record map[string]any

// ID returns the record identifier rendered as a string.
func (r Record) ID() string {
	return r.String("id")
}

// String renders the value stored under key as display text.
func (r Record) String(key string) string {
	if r == nil {
		return ""
	}
	return stringify(r[key])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Time parses the value under key as a date or timestamp.
func (r Record) Time(key string) (time.Time, bool) {
	raw := strings.TrimSpace(r.String(key))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Float parses the value under key as a number.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case map[string]any:
		// nested relations ({"id":1,"nombre":"..."}) render by their name
		for _, key := range []string{"nombre", "name", "razonSocial", "titulo", "id"} {
			if s := stringify(val[key]); s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// Page is one page of a list response.
type Page struct {
	Rows  []Record `json:"data"`
	Total int      `json:"total"`
}

// ListQuery carries the list parameters understood by every resource.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
	DateFrom  string
	DateTo    string
	Filters   map[string]string
}

// Values encodes the query using the backend's parameter names.
func (q ListQuery) Values() url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	set("search", q.Search)
	set("sortBy", q.SortBy)
	set("sortOrder", q.SortOrder)
	set("dateFrom", q.DateFrom)
	set("dateTo", q.DateTo)
	for key, value := range q.Filters {
		set(key, value)
	}
	return values
}

// ExportRef points at a file generated by the backend export endpoint.
type ExportRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// User is the profile returned on login.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Role  string `json:"rol"`
}

// UnmarshalJSON accepts numeric or string ids.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		ID any `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	u.ID = stringify(raw.ID)
	return nil
}

// LoginResult is the payload returned by the auth endpoint.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// BulkPageSize is the page size ListAll asks for when the query sets none.
const BulkPageSize = 500

// Lister is the read side of a resource collection.
type Lister interface {
	List(ctx context.Context, resource string, query ListQuery) (Page, error)
}

// ListAll walks the pages of resource from page 1 until the backend
// total is reached, an empty page comes back, or max rows were read
// (max <= 0 means no bound). The returned Total is the backend's, so
// callers can tell when max cut the result short.
func ListAll(ctx context.Context, l Lister, resource string, query ListQuery, max int) (Page, error) {
	if query.Limit <= 0 {
		query.Limit = BulkPageSize
	}
	var out Page
	for query.Page = 1; ; query.Page++ {
		page, err := l.List(ctx, resource, query)
		if err != nil {
			return Page{}, err
		}
		out.Total = page.Total
		out.Rows = append(out.Rows, page.Rows...)
		if len(page.Rows) == 0 || len(out.Rows) >= page.Total {
			break
		}
		if max > 0 && len(out.Rows) >= max {
			break
		}
	}
	if max > 0 && len(out.Rows) > max {
		out.Rows = out.Rows[:max]
	}
	if out.Rows == nil {
		out.Rows = []Record{}
	}
	if out.Total < len(out.Rows) {
		out.Total = len(out.Rows)
	}
	return out, nil
}
