package dashboard

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestVersion exposes the current manifest format version for tooling.
const ManifestVersion = "1"

//go:embed dashboards.yaml
var defaultManifest []byte

// ManifestDocument lists the dashboard pages.
type ManifestDocument struct {
	Version    string       `json:"version" yaml:"version"`
	Dashboards []Definition `json:"dashboards" yaml:"dashboards"`
	Source     string       `json:"-" yaml:"-"`
}

// DefaultManifest decodes the embedded dashboards manifest.
func DefaultManifest() (*ManifestDocument, error) {
	doc, err := DecodeManifest(bytes.NewReader(defaultManifest))
	if err != nil {
		return nil, err
	}
	doc.Source = "embedded:dashboards.yaml"
	return doc, nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*ManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*ManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc ManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	if doc.Version == "" {
		doc.Version = ManifestVersion
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *ManifestDocument) Validate() error {
	if doc.Version != ManifestVersion {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Dashboards))
	for idx, def := range doc.Dashboards {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("dashboard: manifest entry %d: %w", idx, err)
		}
		if _, exists := seen[def.Code]; exists {
			return fmt.Errorf("dashboard: manifest duplicates dashboard code %s", def.Code)
		}
		seen[def.Code] = struct{}{}
	}
	return nil
}

// Validate checks one dashboard definition.
func (def Definition) Validate() error {
	if def.Code == "" {
		return fmt.Errorf("dashboard code is required")
	}
	if def.Title == "" {
		return fmt.Errorf("dashboard %s missing title", def.Code)
	}
	if def.StatsPath == "" {
		return fmt.Errorf("dashboard %s missing stats_path", def.Code)
	}
	if len(def.Cards) == 0 && len(def.Charts) == 0 {
		return fmt.Errorf("dashboard %s has no cards or charts", def.Code)
	}
	for _, card := range def.Cards {
		if card.Label == "" || card.TotalKey == "" {
			return fmt.Errorf("dashboard %s: cards need label and total_key", def.Code)
		}
		switch card.Format {
		case "", CardNumber, CardMoney, CardPercent:
		default:
			return fmt.Errorf("dashboard %s: card %s has unknown format %q", def.Code, card.TotalKey, card.Format)
		}
	}
	ids := make(map[string]struct{}, len(def.Charts))
	for _, chart := range def.Charts {
		if err := chart.Validate(); err != nil {
			return fmt.Errorf("dashboard %s: %w", def.Code, err)
		}
		if _, dup := ids[chart.ID]; dup {
			return fmt.Errorf("dashboard %s duplicates chart id %s", def.Code, chart.ID)
		}
		ids[chart.ID] = struct{}{}
	}
	return nil
}

// Validate checks the chart kind and data key shape.
func (c ChartDescriptor) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("chart id is required")
	}
	source, name, ok := strings.Cut(c.DataKey, ".")
	if !ok || name == "" {
		return fmt.Errorf("chart %s: data_key %q must look like counts.<name> or timeSeries.<metric>", c.ID, c.DataKey)
	}
	switch c.Kind {
	case KindPie:
		if source != "counts" {
			return fmt.Errorf("chart %s: pie charts need a counts data key", c.ID)
		}
	case KindBar, KindLine:
		if source != "counts" && source != "timeSeries" {
			return fmt.Errorf("chart %s: unknown data source %q", c.ID, source)
		}
	default:
		return fmt.Errorf("chart %s: unsupported kind %q", c.ID, c.Kind)
	}
	return nil
}
