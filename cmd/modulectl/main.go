package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
)

type cli struct {
	Scaffold scaffoldCmd `cmd:"" help:"Add a module entry to a manifest."`
	Validate validateCmd `cmd:"" help:"Validate a module manifest."`
}

type scaffoldCmd struct {
	Code         string   `required:"" help:"Module code used in URLs (e.g. repuestos)."`
	Title        string   `help:"Plural title (defaults to the code)."`
	Singular     string   `help:"Singular title."`
	Resource     string   `help:"REST resource path (defaults to the code)."`
	Group        string   `help:"Navigation group."`
	ManifestPath string   `name:"manifest" required:"" type:"path" help:"Manifest YAML file to update."`
	Field        []string `help:"Field as name=kind (text, textarea, select, date, number). Repeatable, order is kept."`
	Required     []string `help:"Names of required fields."`
	Options      []string `help:"Select options as name=a|b|c."`
	Catalog      []string `help:"Catalog-backed select as name=catalog."`
	Column       []string `help:"Extra list columns beyond id and the fields."`
	SearchKey    []string `name:"search-key" help:"Keys searched by the free text box."`
	DateKey      string   `help:"Key filtered by the date range."`
	Exportable   bool     `help:"Offer csv, xlsx and pdf exports."`
	ReadOnly     bool     `name:"read-only" help:"List and detail only."`
	CatalogTable bool     `name:"catalog-table" help:"Mark as a generales catalog loaded whole."`
	Overwrite    bool     `help:"Replace an existing entry with the same code."`
}

type validateCmd struct {
	ManifestPath string `arg:"" name:"manifest" type:"existingfile" help:"Manifest YAML file."`
}

func main() {
	ctx := kong.Parse(&cli{},
		kong.Name("modulectl"),
		kong.Description("Module manifest utility for the maintenance admin."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

func (cmd *scaffoldCmd) Run(_ context.Context) error {
	entry, err := cmd.module()
	if err != nil {
		return err
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("modulectl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	if err := upsert(doc, entry, cmd.Overwrite); err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s (%d columns, %d fields)\n", entry.Code, manifestPath, len(entry.Columns), len(entry.Fields))
	return nil
}

func (cmd *scaffoldCmd) module() (modules.Module, error) {
	code := strcase.ToKebab(strings.TrimSpace(cmd.Code))
	if code == "" {
		return modules.Module{}, errors.New("modulectl: code is required")
	}
	m := modules.Module{
		Code:          code,
		Resource:      cmd.Resource,
		Title:         cmd.Title,
		TitleSingular: cmd.Singular,
		Group:         cmd.Group,
		SearchKeys:    cmd.SearchKey,
		DateKey:       cmd.DateKey,
		Exportable:    cmd.Exportable,
		ReadOnly:      cmd.ReadOnly,
		Catalog:       cmd.CatalogTable,
	}
	if m.Resource == "" {
		m.Resource = code
	}
	if m.Title == "" {
		m.Title = label(code)
	}

	options, err := pairs(cmd.Options)
	if err != nil {
		return m, err
	}
	catalogs, err := pairs(cmd.Catalog)
	if err != nil {
		return m, err
	}
	required := make(map[string]bool, len(cmd.Required))
	for _, name := range cmd.Required {
		required[name] = true
	}

	m.Columns = []listview.ColumnSchema{{Key: "id", Label: "ID", Sortable: true}}
	for _, spec := range cmd.Field {
		name, kind, ok := strings.Cut(spec, "=")
		if !ok {
			kind = string(form.KindText)
		}
		name = strcase.ToCamel(strings.TrimSpace(name))
		field := form.FieldSchema{
			Name:     name,
			Label:    label(name),
			Kind:     form.Kind(strings.TrimSpace(kind)),
			Required: required[name],
			Catalog:  catalogs[name],
		}
		if raw, ok := options[name]; ok {
			field.Options = strings.Split(raw, "|")
		}
		m.Fields = append(m.Fields, field)
		m.Columns = append(m.Columns, column(name, field.Kind))
		if field.Kind == form.KindSelect {
			m.Filters = append(m.Filters, modules.FilterSchema{Key: name, Label: field.Label, Options: field.Options, Catalog: field.Catalog})
		}
	}
	for _, key := range cmd.Column {
		m.Columns = append(m.Columns, listview.ColumnSchema{Key: strcase.ToCamel(key), Sortable: true})
	}
	if len(m.Fields) > 0 {
		m.SortBy = m.Fields[0].Name
	}
	return m, m.Validate()
}

func column(name string, kind form.Kind) listview.ColumnSchema {
	col := listview.ColumnSchema{Key: name, Label: label(name), Sortable: kind != form.KindTextarea}
	switch {
	case kind == form.KindDate:
		col.Format = listview.FormatDate
	case name == "estado":
		col.Format = listview.FormatStatus
	}
	return col
}

// label turns a camelCase key into a capitalised phrase.
func label(key string) string {
	words := strings.ReplaceAll(strcase.ToSnake(key), "_", " ")
	if words == "" {
		return ""
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

func pairs(specs []string) (map[string]string, error) {
	out := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, value, ok := strings.Cut(spec, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("modulectl: expected name=value, got %q", spec)
		}
		out[strcase.ToCamel(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return out, nil
}

func upsert(doc *modules.ManifestDocument, entry modules.Module, overwrite bool) error {
	for idx := range doc.Modules {
		if doc.Modules[idx].Code != entry.Code {
			continue
		}
		if !overwrite {
			return fmt.Errorf("modulectl: manifest already defines module %s (use --overwrite to replace)", entry.Code)
		}
		doc.Modules[idx] = entry
		return nil
	}
	doc.Modules = append(doc.Modules, entry)
	return nil
}

func (cmd *validateCmd) Run(_ context.Context) error {
	doc, err := modules.ReadManifest(cmd.ManifestPath)
	if err != nil {
		return err
	}
	return summarize(os.Stdout, doc)
}

func summarize(w io.Writer, doc *modules.ManifestDocument) error {
	reg := modules.NewRegistry()
	if err := reg.LoadManifest(doc); err != nil {
		return err
	}
	codes := make([]string, 0, len(doc.Modules))
	for _, m := range doc.Modules {
		codes = append(codes, m.Code)
	}
	sort.Strings(codes)
	_, err := fmt.Fprintf(w, "✓ %s: %d modules (%s)\n", doc.Source, len(codes), strings.Join(codes, ", "))
	return err
}

func loadOrInitManifest(path string) (*modules.ManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &modules.ManifestDocument{Version: modules.ManifestVersion, Source: path}, nil
		}
		return nil, fmt.Errorf("modulectl: stat manifest: %w", err)
	}
	return modules.ReadManifest(path)
}

func writeManifest(path string, doc *modules.ManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("modulectl: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("modulectl: create manifest %s: %w", path, err)
	}
	defer file.Close()
	if err := doc.Encode(file); err != nil {
		return fmt.Errorf("modulectl: write manifest: %w", err)
	}
	return nil
}
