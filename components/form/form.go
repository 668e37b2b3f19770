package form

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Values is the flat name -> value map a form accumulates.
type Values map[string]string

// SubmitFunc receives the values of a submitted form.
type SubmitFunc func(ctx context.Context, values Values) error

// CancelFunc runs when the user cancels the form.
type CancelFunc func()

var errNoSubmit = errors.New("form: submit handler is required")

// Form is the generic declarative form. It keeps its values after submit;
// the host decides whether to reset or navigate away.
type Form struct {
	fields    []FieldSchema
	validator *Validator
	onSubmit  SubmitFunc
	onCancel  CancelFunc

	mu     sync.Mutex
	values Values
	errs   map[string]string
}

// Options configures a Form.
type Options struct {
	Fields    []FieldSchema
	Validator *Validator
	OnSubmit  SubmitFunc
	OnCancel  CancelFunc
	Initial   Values
}

// New builds a form with every declared field initialised to "" unless
// Initial provides a value.
func New(opts Options) (*Form, error) {
	if opts.OnSubmit == nil {
		return nil, errNoSubmit
	}
	if err := ValidateFields(opts.Fields); err != nil {
		return nil, err
	}
	f := &Form{
		fields:    opts.Fields,
		validator: opts.Validator,
		onSubmit:  opts.OnSubmit,
		onCancel:  opts.OnCancel,
		values:    Values{},
		errs:      map[string]string{},
	}
	for _, field := range opts.Fields {
		f.values[field.Name] = opts.Initial[field.Name]
	}
	return f, nil
}

// Fields returns the declared schema.
func (f *Form) Fields() []FieldSchema {
	return f.fields
}

// Set records a change to one input. Unknown names are ignored.
func (f *Form) Set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[name]; ok {
		f.values[name] = value
		delete(f.errs, name)
	}
}

// Bind copies posted values for every declared field.
func (f *Form) Bind(posted map[string]string) {
	for _, field := range f.fields {
		if value, ok := posted[field.Name]; ok {
			f.Set(field.Name, value)
		}
	}
}

// Values returns a copy containing every declared field.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(Values, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Value returns the current value of one field.
func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// Errors returns the field errors of the last failed submit.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// SetErrors records field errors reported by someone else (the backend).
func (f *Form) SetErrors(errs map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = map[string]string{}
	for k, v := range errs {
		f.errs[k] = v
	}
}

// Submit validates and invokes the submit handler exactly once. Values
// are left in place whatever the outcome.
func (f *Form) Submit(ctx context.Context) error {
	values := f.Values()
	for k, v := range values {
		values[k] = strings.TrimSpace(v)
	}
	if f.validator != nil {
		if err := f.validator.Validate(values); err != nil {
			f.SetErrors(FieldErrors(err))
			return err
		}
	}
	f.SetErrors(nil)
	return f.onSubmit(ctx, values)
}

// Cancel invokes the cancel handler without confirmation.
func (f *Form) Cancel() {
	if f.onCancel != nil {
		f.onCancel()
	}
}
