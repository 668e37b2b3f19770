package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

type recordDeleter interface {
	Delete(ctx context.Context, resource, id string) error
}

// DeleteRecordInput identifies the record to remove. Confirmation happens
// before the command is dispatched.
type DeleteRecordInput struct {
	Module string
	ID     string
}

// DeleteRecordCommand issues exactly one DELETE to the backend.
type DeleteRecordCommand struct {
	modules   moduleSource
	deleter   recordDeleter
	telemetry Telemetry
}

// NewDeleteRecordCommand creates the command.
func NewDeleteRecordCommand(modules moduleSource, deleter recordDeleter, telemetry Telemetry) *DeleteRecordCommand {
	return &DeleteRecordCommand{modules: modules, deleter: deleter, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteRecordInput] = (*DeleteRecordCommand)(nil)

// Execute deletes the record.
func (c *DeleteRecordCommand) Execute(ctx context.Context, msg DeleteRecordInput) error {
	if c.modules == nil || c.deleter == nil {
		return errors.New("delete command requires modules and deleter")
	}
	if msg.ID == "" {
		return errors.New("delete command requires an id")
	}
	module, err := c.modules.Lookup(msg.Module)
	if err != nil {
		return err
	}
	if module.ReadOnly {
		return readOnlyError(module)
	}
	if err := c.deleter.Delete(ctx, module.Resource, msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "modules.record.delete", map[string]any{
		"module": module.Code,
		"id":     msg.ID,
	})
	return nil
}
