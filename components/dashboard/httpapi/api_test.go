package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard"
)

func TestHandleEventsWithoutBroadcast(t *testing.T) {
	app := fiber.New()
	app.Get("/events", (&Handlers{}).HandleEvents)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/events", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleEventsStopsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &Handlers{Broadcast: dashboard.NewBroadcastHook(), Shutdown: ctx}
	app := fiber.New()
	app.Get("/events", h.HandleEvents)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/events", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "retry: 5000") {
		t.Fatalf("expected retry preamble, got %q", body)
	}
	if n := h.Broadcast.Subscribers(); n != 0 {
		t.Fatalf("expected subscription released, got %d", n)
	}
}

func TestWriteError(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return WriteError(c, goerrors.New("missing", goerrors.CategoryNotFound).WithTextCode("DASHBOARD_NOT_FOUND"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Registro no encontrado" || body.Code != "DASHBOARD_NOT_FOUND" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"validation": {goerrors.NewValidation("invalid", goerrors.FieldError{Field: "nombre", Message: "Campo requerido"}), http.StatusUnprocessableEntity},
		"bad input":  {goerrors.New("bad", goerrors.CategoryBadInput), http.StatusBadRequest},
		"authz":      {goerrors.New("read only", goerrors.CategoryAuthz), http.StatusForbidden},
		"internal":   {goerrors.Wrap(errors.New("template"), goerrors.CategoryInternal, "render"), http.StatusInternalServerError},
		"transport":  {errors.New("dial tcp: refused"), http.StatusBadGateway},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, msg := StatusFor(tc.err)
			if status != tc.status || msg == "" {
				t.Fatalf("unexpected mapping %d %q", status, msg)
			}
		})
	}
}
