package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

type moduleSource interface {
	Lookup(code string) (modules.Module, error)
	Validator(code string) *form.Validator
}

type recordWriter interface {
	Create(ctx context.Context, resource string, record backend.Record) (backend.Record, error)
	Update(ctx context.Context, resource, id string, record backend.Record) (backend.Record, error)
}

// SaveRecordInput creates a record when ID is empty, otherwise replaces it.
// Result receives the stored record when set.
type SaveRecordInput struct {
	Module string
	ID     string
	Values form.Values
	Result *backend.Record
}

// SaveRecordCommand validates submitted form values and sends them to the
// backend as a full replace.
type SaveRecordCommand struct {
	modules   moduleSource
	writer    recordWriter
	telemetry Telemetry
}

// NewSaveRecordCommand creates the command.
func NewSaveRecordCommand(modules moduleSource, writer recordWriter, telemetry Telemetry) *SaveRecordCommand {
	return &SaveRecordCommand{modules: modules, writer: writer, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveRecordInput] = (*SaveRecordCommand)(nil)

// Execute validates and stores the record.
func (c *SaveRecordCommand) Execute(ctx context.Context, msg SaveRecordInput) error {
	if c.modules == nil || c.writer == nil {
		return errors.New("save command requires modules and writer")
	}
	module, err := c.modules.Lookup(msg.Module)
	if err != nil {
		return err
	}
	if module.ReadOnly {
		return readOnlyError(module)
	}
	if validator := c.modules.Validator(module.Code); validator != nil {
		if err := validator.Validate(msg.Values); err != nil {
			return err
		}
	}
	payload := module.Record(msg.Values)

	var saved backend.Record
	event := "modules.record.create"
	if msg.ID == "" {
		saved, err = c.writer.Create(ctx, module.Resource, payload)
	} else {
		event = "modules.record.update"
		saved, err = c.writer.Update(ctx, module.Resource, msg.ID, payload)
	}
	if err != nil {
		return err
	}
	if saved == nil {
		saved = payload
	}
	if msg.Result != nil {
		*msg.Result = saved
	}
	id := saved.ID()
	if id == "" {
		id = msg.ID
	}
	c.telemetry.Record(ctx, event, map[string]any{
		"module": module.Code,
		"id":     id,
	})
	return nil
}

func readOnlyError(module modules.Module) error {
	return goerrors.New("modules: "+module.Code+" is read-only", goerrors.CategoryAuthz).
		WithTextCode("MODULE_READ_ONLY").
		WithMetadata(map[string]any{"module": module.Code})
}
