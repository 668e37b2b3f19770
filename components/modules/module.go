package modules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Module binds one business entity to its REST resource and to the column,
// field and filter schemas the generic list and form render.
type Module struct {
	Code          string                  `yaml:"code" json:"code"`
	Resource      string                  `yaml:"resource" json:"resource"`
	Title         string                  `yaml:"title" json:"title"`
	TitleSingular string                  `yaml:"title_singular,omitempty" json:"title_singular,omitempty"`
	Group         string                  `yaml:"group,omitempty" json:"group,omitempty"`
	Icon          string                  `yaml:"icon,omitempty" json:"icon,omitempty"`
	Columns       []listview.ColumnSchema `yaml:"columns" json:"columns"`
	Fields        []form.FieldSchema      `yaml:"fields,omitempty" json:"fields,omitempty"`
	Filters       []FilterSchema          `yaml:"filters,omitempty" json:"filters,omitempty"`
	SearchKeys    []string                `yaml:"search_keys,omitempty" json:"search_keys,omitempty"`
	DateKey       string                  `yaml:"date_key,omitempty" json:"date_key,omitempty"`
	SortBy        string                  `yaml:"sort_by,omitempty" json:"sort_by,omitempty"`
	SortOrder     string                  `yaml:"sort_order,omitempty" json:"sort_order,omitempty"`
	PageSize      int                     `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	Exportable    bool                    `yaml:"exportable,omitempty" json:"exportable,omitempty"`
	ReadOnly      bool                    `yaml:"read_only,omitempty" json:"read_only,omitempty"`
	// Catalog resources are small generales tables loaded whole and
	// filtered, sorted and paged in process.
	Catalog   bool   `yaml:"catalog,omitempty" json:"catalog,omitempty"`
	Dashboard string `yaml:"dashboard,omitempty" json:"dashboard,omitempty"`
	Map       bool   `yaml:"map,omitempty" json:"map,omitempty"`
}

// FilterSchema is one entity filter offered in the filter panel.
type FilterSchema struct {
	Key     string   `yaml:"key" json:"key"`
	Label   string   `yaml:"label" json:"label"`
	Options []string `yaml:"options,omitempty" json:"options,omitempty"`
	Catalog string   `yaml:"catalog,omitempty" json:"catalog,omitempty"`
}

// Validate checks the module declaration.
func (m Module) Validate() error {
	if !codePattern.MatchString(m.Code) {
		return fmt.Errorf("modules: invalid module code %q", m.Code)
	}
	if strings.TrimSpace(m.Resource) == "" {
		return fmt.Errorf("modules: module %s missing resource", m.Code)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("modules: module %s missing title", m.Code)
	}
	if len(m.Columns) == 0 {
		return fmt.Errorf("modules: module %s declares no columns", m.Code)
	}
	columns := make(map[string]struct{}, len(m.Columns))
	for _, col := range m.Columns {
		if col.Key == "" {
			return fmt.Errorf("modules: module %s has a column without key", m.Code)
		}
		if _, dup := columns[col.Key]; dup {
			return fmt.Errorf("modules: module %s duplicates column %s", m.Code, col.Key)
		}
		columns[col.Key] = struct{}{}
	}
	if !m.ReadOnly && len(m.Fields) == 0 {
		return fmt.Errorf("modules: editable module %s declares no fields", m.Code)
	}
	if err := form.ValidateFields(m.Fields); err != nil {
		return fmt.Errorf("modules: module %s: %w", m.Code, err)
	}
	if m.SortBy != "" {
		if _, ok := columns[m.SortBy]; !ok {
			return fmt.Errorf("modules: module %s sorts by unknown column %s", m.Code, m.SortBy)
		}
	}
	switch m.SortOrder {
	case "", listview.SortAsc, listview.SortDesc:
	default:
		return fmt.Errorf("modules: module %s has invalid sort order %q", m.Code, m.SortOrder)
	}
	for _, f := range m.Filters {
		if f.Key == "" {
			return fmt.Errorf("modules: module %s has a filter without key", m.Code)
		}
	}
	return nil
}

// Singular returns the singular title, falling back to Title.
func (m Module) Singular() string {
	if m.TitleSingular != "" {
		return m.TitleSingular
	}
	return m.Title
}

// InitialState is the filter state a fresh list view starts from.
func (m Module) InitialState() listview.FilterState {
	return listview.NewFilterState(m.PageSize, m.SortBy, m.SortOrder)
}

// FilterKeys lists the entity filters accepted from a query string.
func (m Module) FilterKeys() []string {
	keys := make([]string, 0, len(m.Filters))
	for _, f := range m.Filters {
		keys = append(keys, f.Key)
	}
	return keys
}

// Catalogs lists every generales catalog referenced by fields or filters.
func (m Module) Catalogs() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, f := range m.Fields {
		add(f.Catalog)
	}
	for _, f := range m.Filters {
		add(f.Catalog)
	}
	return out
}

// Field returns the field declaration named name.
func (m Module) Field(name string) (form.FieldSchema, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return form.FieldSchema{}, false
}

// Record converts submitted form values into the backend payload. Number
// fields are sent as JSON numbers and empty numbers are sent as null.
func (m Module) Record(values form.Values) backend.Record {
	out := make(backend.Record, len(m.Fields))
	for _, field := range m.Fields {
		raw := strings.TrimSpace(values[field.Name])
		if field.Kind != form.KindNumber {
			out[field.Name] = raw
			continue
		}
		if raw == "" {
			out[field.Name] = nil
			continue
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			out[field.Name] = raw
			continue
		}
		if n == float64(int64(n)) {
			out[field.Name] = int64(n)
		} else {
			out[field.Name] = n
		}
	}
	return out
}

// FormValues extracts the editable values of a stored record.
func (m Module) FormValues(record backend.Record) form.Values {
	values := make(form.Values, len(m.Fields))
	for _, field := range m.Fields {
		if field.Kind == form.KindDate {
			if t, ok := record.Time(field.Name); ok {
				values[field.Name] = t.Format("2006-01-02")
				continue
			}
		}
		values[field.Name] = record.String(field.Name)
	}
	return values
}
