package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

type exporter interface {
	Export(ctx context.Context, resource, format string, query backend.ListQuery) (backend.ExportRef, error)
}

// RequestExportInput asks the backend to generate a file for the current
// filter selection. Result receives the file reference.
type RequestExportInput struct {
	Module string
	Format string
	State  listview.FilterState
	Result *backend.ExportRef
}

// RequestExportCommand delegates file generation to the backend export
// endpoint.
type RequestExportCommand struct {
	modules   moduleSource
	exporter  exporter
	telemetry Telemetry
}

// NewRequestExportCommand creates the command.
func NewRequestExportCommand(modules moduleSource, exporter exporter, telemetry Telemetry) *RequestExportCommand {
	return &RequestExportCommand{modules: modules, exporter: exporter, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RequestExportInput] = (*RequestExportCommand)(nil)

// Execute requests the export.
func (c *RequestExportCommand) Execute(ctx context.Context, msg RequestExportInput) error {
	if c.modules == nil || c.exporter == nil {
		return errors.New("export command requires modules and exporter")
	}
	module, err := c.modules.Lookup(msg.Module)
	if err != nil {
		return err
	}
	if !module.Exportable {
		return goerrors.New("modules: "+module.Code+" is not exportable", goerrors.CategoryBadInput).
			WithTextCode("MODULE_NOT_EXPORTABLE")
	}
	format := msg.Format
	if format == "" {
		format = "xlsx"
	}
	query := msg.State.ListQuery()
	query.Page = 0
	query.Limit = 0
	ref, err := c.exporter.Export(ctx, module.Resource, format, query)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = ref
	}
	c.telemetry.Record(ctx, "modules.export.request", map[string]any{
		"module": module.Code,
		"format": format,
		"file":   ref.Filename,
	})
	return nil
}
