package form

import (
	"fmt"
	"strings"
)

// Kind is the input type rendered for a field.
type Kind string

// Supported field kinds.
const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindSelect   Kind = "select"
	KindDate     Kind = "date"
	KindNumber   Kind = "number"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindTextarea, KindSelect, KindDate, KindNumber:
		return true
	}
	return false
}

// FieldSchema declares one form input. Schemas are static per module.
type FieldSchema struct {
	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label" json:"label"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Required    bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Options     []string `yaml:"options,omitempty" json:"options,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	// Catalog names a generales catalog whose entries fill the options.
	Catalog string `yaml:"catalog,omitempty" json:"catalog,omitempty"`
}

// InputType returns the HTML input type attribute for text-like kinds.
func (f FieldSchema) InputType() string {
	switch f.Kind {
	case KindDate:
		return "date"
	case KindNumber:
		return "number"
	default:
		return "text"
	}
}

// Validate checks the declaration itself.
func (f FieldSchema) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("form: field name is required")
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("form: field %s has unknown kind %q", f.Name, f.Kind)
	}
	if f.Kind == KindSelect && len(f.Options) == 0 && f.Catalog == "" {
		return fmt.Errorf("form: select field %s needs options or a catalog", f.Name)
	}
	return nil
}

// ValidateFields checks a field list for bad or duplicate declarations.
func ValidateFields(fields []FieldSchema) error {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if err := field.Validate(); err != nil {
			return err
		}
		if _, ok := seen[field.Name]; ok {
			return fmt.Errorf("form: duplicate field %s", field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	return nil
}
