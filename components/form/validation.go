package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrorMessage is shown above a form that failed validation.
const ErrorMessage = "Revise los campos marcados"

const (
	numberPattern = `^-?[0-9]+([.,][0-9]+)?$`
	datePattern   = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`
)

// Validator checks submitted values against a JSON schema generated from
// the field list: required fields need a non-empty value, selects must
// use a declared option, numbers and dates must parse.
type Validator struct {
	fields []FieldSchema
	schema *jsonschema.Schema
}

// NewValidator compiles the schema for fields.
func NewValidator(code string, fields []FieldSchema) (*Validator, error) {
	doc := SchemaDocument(fields)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("form: marshal schema %s: %w", code, err)
	}
	compiler := jsonschema.NewCompiler()
	name := code + ".form.json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("form: load schema %s: %w", code, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("form: compile schema %s: %w", code, err)
	}
	return &Validator{fields: fields, schema: schema}, nil
}

// SchemaDocument builds the JSON schema describing a field list.
func SchemaDocument(fields []FieldSchema) map[string]any {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, field := range fields {
		prop := map[string]any{"type": "string"}
		if field.Required {
			prop["minLength"] = 1
		}
		var patterns []string
		switch field.Kind {
		case KindNumber:
			patterns = append(patterns, numberPattern)
		case KindDate:
			patterns = append(patterns, datePattern)
		case KindSelect:
			if len(field.Options) > 0 && field.Catalog == "" {
				options := append([]string(nil), field.Options...)
				if !field.Required {
					options = append(options, "")
				}
				prop["enum"] = options
			}
		}
		if len(patterns) > 0 {
			if field.Required {
				prop["pattern"] = patterns[0]
			} else {
				prop["pattern"] = "(^$)|(" + patterns[0] + ")"
			}
		}
		properties[field.Name] = prop
		required = append(required, field.Name)
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Validate returns a go-errors validation error listing every bad field.
func (v *Validator) Validate(values Values) error {
	payload := make(map[string]any, len(v.fields))
	for _, field := range v.fields {
		payload[field.Name] = strings.TrimSpace(values[field.Name])
	}
	err := v.schema.Validate(payload)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !goerrors.As(err, &verr) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "form: validate")
	}
	return goerrors.NewValidation(ErrorMessage, v.fieldErrors(verr, values)...)
}

func (v *Validator) fieldErrors(verr *jsonschema.ValidationError, values Values) []goerrors.FieldError {
	byField := map[string]string{}
	collectLeaves(verr, func(leaf *jsonschema.ValidationError) {
		field := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if field == "" || strings.Contains(field, "/") {
			return
		}
		// an empty required value also fails its pattern; report it as missing
		if _, ok := byField[field]; !ok || strings.HasSuffix(leaf.KeywordLocation, "/minLength") {
			byField[field] = v.message(field, leaf.KeywordLocation)
		}
	})
	names := make([]string, 0, len(byField))
	for name := range byField {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]goerrors.FieldError, 0, len(names))
	for _, name := range names {
		out = append(out, goerrors.FieldError{Field: name, Message: byField[name], Value: values[name]})
	}
	return out
}

func (v *Validator) message(field, keyword string) string {
	switch {
	case strings.HasSuffix(keyword, "/minLength"):
		return "Campo obligatorio"
	case strings.HasSuffix(keyword, "/enum"):
		return "Seleccione una opción válida"
	case strings.HasSuffix(keyword, "/pattern"):
		for _, f := range v.fields {
			if f.Name == field && f.Kind == KindDate {
				return "Fecha inválida"
			}
		}
		return "Número inválido"
	default:
		return "Valor inválido"
	}
}

func collectLeaves(err *jsonschema.ValidationError, fn func(*jsonschema.ValidationError)) {
	if len(err.Causes) == 0 {
		fn(err)
		return
	}
	for _, cause := range err.Causes {
		collectLeaves(cause, fn)
	}
}

// FieldErrors flattens go-errors validation details into field -> message.
func FieldErrors(err error) map[string]string {
	fields, ok := goerrors.GetValidationErrors(err)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, fe := range fields {
		if _, seen := out[fe.Field]; !seen {
			out[fe.Field] = fe.Message
		}
	}
	return out
}
