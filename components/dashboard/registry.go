package dashboard

import (
	"fmt"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// DefinitionHook lets packages register dashboards during init().
type DefinitionHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []DefinitionHook
)

// RegisterDefinitionHook registers a hook executed by ApplyHooks.
func RegisterDefinitionHook(h DefinitionHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry keeps dashboard definitions in registration order.
type Registry struct {
	mu          sync.RWMutex
	order       []string
	definitions map[string]Definition
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: map[string]Definition{}}
}

// DefaultRegistry loads the embedded manifest and applies registered hooks.
func DefaultRegistry() (*Registry, error) {
	doc, err := DefaultManifest()
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	if err := reg.LoadManifest(doc); err != nil {
		return nil, err
	}
	if err := reg.ApplyHooks(); err != nil {
		return nil, err
	}
	return reg, nil
}

// ApplyHooks executes registered definition hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// LoadManifestFile reads and registers a manifest from disk.
func (r *Registry) LoadManifestFile(path string) (*ManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifest(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifest registers every definition from a decoded manifest.
func (r *Registry) LoadManifest(doc *ManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("dashboard: manifest document is nil")
	}
	for _, def := range doc.Dashboards {
		if err := r.Register(def); err != nil {
			return fmt.Errorf("dashboard: register %s from %s: %w", def.Code, doc.Source, err)
		}
	}
	return nil
}

// Register validates and stores a definition. Codes are unique.
func (r *Registry) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	def.TitleLocalized = normalizeLocaleMap(def.TitleLocalized)
	for i := range def.Cards {
		def.Cards[i].LabelLocalized = normalizeLocaleMap(def.Cards[i].LabelLocalized)
	}
	for i := range def.Charts {
		def.Charts[i].TitleLocalized = normalizeLocaleMap(def.Charts[i].TitleLocalized)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[def.Code]; exists {
		return fmt.Errorf("dashboard %s already registered", def.Code)
	}
	r.definitions[def.Code] = def
	r.order = append(r.order, def.Code)
	return nil
}

// Definition fetches a dashboard definition by code.
func (r *Registry) Definition(code string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[code]
	return def, ok
}

// Lookup is Definition with a not-found error.
func (r *Registry) Lookup(code string) (Definition, error) {
	def, ok := r.Definition(code)
	if !ok {
		return Definition{}, goerrors.New(fmt.Sprintf("dashboard %s not found", code), goerrors.CategoryNotFound).
			WithTextCode("DASHBOARD_NOT_FOUND").
			WithMetadata(map[string]any{"dashboard": code})
	}
	return def, nil
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, code := range r.order {
		defs = append(defs, r.definitions[code])
	}
	return defs
}
