package commands

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

type stubBackend struct {
	created  []backend.Record
	updated  map[string]backend.Record
	deleted  []string
	exported []backend.ListQuery
	err      error
}

func (s *stubBackend) Create(_ context.Context, resource string, record backend.Record) (backend.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, record)
	out := record.Clone()
	out["id"] = 41
	return out, nil
}

func (s *stubBackend) Update(_ context.Context, resource, id string, record backend.Record) (backend.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.updated == nil {
		s.updated = map[string]backend.Record{}
	}
	s.updated[id] = record
	out := record.Clone()
	out["id"] = id
	return out, nil
}

func (s *stubBackend) Delete(_ context.Context, resource, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, resource+"/"+id)
	return nil
}

func (s *stubBackend) Export(_ context.Context, resource, format string, query backend.ListQuery) (backend.ExportRef, error) {
	if s.err != nil {
		return backend.ExportRef{}, s.err
	}
	s.exported = append(s.exported, query)
	return backend.ExportRef{URL: "/files/" + resource + "." + format, Filename: resource + "." + format}, nil
}

type stubTelemetry struct {
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}

func testRegistry(t *testing.T) *modules.Registry {
	t.Helper()
	reg, err := modules.DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry returned error: %v", err)
	}
	return reg
}

func TestSaveRecordCommandCreates(t *testing.T) {
	store := &stubBackend{}
	telemetry := &stubTelemetry{}
	cmd := NewSaveRecordCommand(testRegistry(t), store, telemetry)

	var saved backend.Record
	err := cmd.Execute(context.Background(), SaveRecordInput{
		Module: "marcas",
		Values: form.Values{"nombre": "Mindray", "pais": "China"},
		Result: &saved,
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(store.created))
	}
	if saved.ID() != "41" {
		t.Fatalf("expected saved id 41, got %q", saved.ID())
	}
	if len(telemetry.events) != 1 || telemetry.events[0] != "modules.record.create" {
		t.Fatalf("unexpected telemetry: %v", telemetry.events)
	}
}

func TestSaveRecordCommandUpdates(t *testing.T) {
	store := &stubBackend{}
	cmd := NewSaveRecordCommand(testRegistry(t), store, nil)
	err := cmd.Execute(context.Background(), SaveRecordInput{
		Module: "marcas",
		ID:     "7",
		Values: form.Values{"nombre": "Philips"},
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	got, ok := store.updated["7"]
	if !ok {
		t.Fatalf("expected update for id 7")
	}
	if got["pais"] != "" {
		t.Fatalf("expected absent optional field sent as empty string, got %#v", got["pais"])
	}
}

func TestSaveRecordCommandValidates(t *testing.T) {
	store := &stubBackend{}
	cmd := NewSaveRecordCommand(testRegistry(t), store, nil)
	err := cmd.Execute(context.Background(), SaveRecordInput{Module: "marcas", Values: form.Values{}})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestSaveRecordCommandRejectsReadOnlyAndUnknown(t *testing.T) {
	cmd := NewSaveRecordCommand(testRegistry(t), &stubBackend{}, nil)
	err := cmd.Execute(context.Background(), SaveRecordInput{Module: "auditoria"})
	if !goerrors.HasCategory(err, goerrors.CategoryAuthz) {
		t.Fatalf("expected authz error, got %v", err)
	}
	err = cmd.Execute(context.Background(), SaveRecordInput{Module: "missing"})
	if !goerrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveRecordCommandPropagatesBackendError(t *testing.T) {
	boom := errors.New("down")
	cmd := NewSaveRecordCommand(testRegistry(t), &stubBackend{err: boom}, nil)
	err := cmd.Execute(context.Background(), SaveRecordInput{Module: "marcas", Values: form.Values{"nombre": "GE"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestDeleteRecordCommand(t *testing.T) {
	store := &stubBackend{}
	telemetry := &stubTelemetry{}
	cmd := NewDeleteRecordCommand(testRegistry(t), store, telemetry)
	if err := cmd.Execute(context.Background(), DeleteRecordInput{Module: "ciudades", ID: "3"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "generales/ciudades/3" {
		t.Fatalf("unexpected deletes: %v", store.deleted)
	}
	if len(telemetry.events) != 1 {
		t.Fatalf("expected telemetry event")
	}
	if err := cmd.Execute(context.Background(), DeleteRecordInput{Module: "ciudades"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if err := cmd.Execute(context.Background(), DeleteRecordInput{Module: "auditoria", ID: "1"}); err == nil {
		t.Fatalf("expected read-only error")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected no further deletes, got %v", store.deleted)
	}
}

func TestRequestExportCommand(t *testing.T) {
	store := &stubBackend{}
	cmd := NewRequestExportCommand(testRegistry(t), store, nil)
	state := listview.NewFilterState(15, "nombre", "asc").Apply("estado", "operativo").WithPage(3)

	var ref backend.ExportRef
	err := cmd.Execute(context.Background(), RequestExportInput{Module: "equipos", State: state, Result: &ref})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if ref.Filename != "equipos.xlsx" {
		t.Fatalf("unexpected ref %+v", ref)
	}
	query := store.exported[0]
	if query.Page != 0 || query.Limit != 0 {
		t.Fatalf("expected export to ignore pagination, got page=%d limit=%d", query.Page, query.Limit)
	}
	if query.Filters["estado"] != "operativo" {
		t.Fatalf("expected filters to be forwarded, got %v", query.Filters)
	}
}
