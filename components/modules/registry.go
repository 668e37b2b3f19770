package modules

import (
	"fmt"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
)

// Registry holds the configured modules in manifest order together with
// their compiled form validators.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	modules    map[string]Module
	validators map[string]*form.Validator
}

// NavGroup is one section of the navigation menu.
type NavGroup struct {
	Name    string
	Modules []Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules:    map[string]Module{},
		validators: map[string]*form.Validator{},
	}
}

// DefaultRegistry loads the embedded manifest.
func DefaultRegistry() (*Registry, error) {
	doc, err := DefaultManifest()
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	if err := reg.LoadManifest(doc); err != nil {
		return nil, err
	}
	return reg, nil
}

// Register validates m, compiles its form validator and adds it.
func (r *Registry) Register(m Module) error {
	if err := m.Validate(); err != nil {
		return err
	}
	var validator *form.Validator
	if len(m.Fields) > 0 {
		v, err := form.NewValidator(m.Code, m.Fields)
		if err != nil {
			return fmt.Errorf("modules: module %s: %w", m.Code, err)
		}
		validator = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[m.Code]; exists {
		return fmt.Errorf("modules: module %s already registered", m.Code)
	}
	r.modules[m.Code] = m
	r.validators[m.Code] = validator
	r.order = append(r.order, m.Code)
	return nil
}

// LoadManifest registers every module of doc.
func (r *Registry) LoadManifest(doc *ManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("modules: manifest document is nil")
	}
	for _, m := range doc.Modules {
		if err := r.Register(m); err != nil {
			return fmt.Errorf("modules: register %s from %s: %w", m.Code, doc.Source, err)
		}
	}
	return nil
}

// Get returns the module registered under code.
func (r *Registry) Get(code string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[code]
	return m, ok
}

// Lookup is Get returning a not-found error for unknown codes.
func (r *Registry) Lookup(code string) (Module, error) {
	m, ok := r.Get(code)
	if !ok {
		return Module{}, goerrors.New("modules: unknown module "+code, goerrors.CategoryNotFound).
			WithTextCode("MODULE_NOT_FOUND").
			WithMetadata(map[string]any{"module": code})
	}
	return m, nil
}

// Validator returns the compiled validator of a module; nil for read-only
// modules without fields.
func (r *Registry) Validator(code string) *form.Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validators[code]
}

// All returns the modules in registration order.
func (r *Registry) All() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Module, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.modules[code])
	}
	return out
}

// Navigation groups modules for the menu. Ungrouped modules become their
// own entry; grouped ones are collected under the first occurrence.
func (r *Registry) Navigation() []NavGroup {
	var groups []NavGroup
	index := map[string]int{}
	for _, m := range r.All() {
		if m.Group == "" {
			groups = append(groups, NavGroup{Modules: []Module{m}})
			continue
		}
		if i, ok := index[m.Group]; ok {
			groups[i].Modules = append(groups[i].Modules, m)
			continue
		}
		index[m.Group] = len(groups)
		groups = append(groups, NavGroup{Name: m.Group, Modules: []Module{m}})
	}
	return groups
}
