package modules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestVersion is the supported manifest format version.
const ManifestVersion = "1"

//go:embed modules.yaml
var defaultManifest []byte

// ManifestDocument is the YAML document listing every module.
type ManifestDocument struct {
	Version string   `yaml:"version" json:"version"`
	Modules []Module `yaml:"modules" json:"modules"`
	Source  string   `yaml:"-" json:"-"`
}

// DefaultManifest decodes the embedded manifest.
func DefaultManifest() (*ManifestDocument, error) {
	doc, err := DecodeManifest(bytes.NewReader(defaultManifest))
	if err != nil {
		return nil, err
	}
	doc.Source = "embedded:modules.yaml"
	return doc, nil
}

// ReadManifest loads a manifest file from disk.
func ReadManifest(path string) (*ManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("modules: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("modules: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from r. Unknown keys are rejected.
func DecodeManifest(r io.Reader) (*ManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc ManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("modules: manifest is empty")
		}
		return nil, fmt.Errorf("modules: parse manifest: %w", err)
	}
	if doc.Version == "" {
		doc.Version = ManifestVersion
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the version, every module and code uniqueness.
func (doc *ManifestDocument) Validate() error {
	if doc.Version != ManifestVersion {
		return fmt.Errorf("modules: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Modules))
	for idx, m := range doc.Modules {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("modules: manifest entry %d: %w", idx, err)
		}
		if _, dup := seen[m.Code]; dup {
			return fmt.Errorf("modules: manifest duplicates module %s", m.Code)
		}
		seen[m.Code] = struct{}{}
	}
	return nil
}

// Encode writes doc as YAML.
func (doc *ManifestDocument) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
