package gorouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/queries"
)

type stubQuerier struct {
	last queries.LoadDashboardInput
	view dashboard.View
	err  error
}

func (s *stubQuerier) Query(_ context.Context, in queries.LoadDashboardInput) (dashboard.View, error) {
	s.last = in
	return s.view, s.err
}

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(_ context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

func newApp(t *testing.T, cfg Config[*fiber.App]) *fiber.App {
	t.Helper()
	adapter := router.NewFiberAdapter(func(app *fiber.App) *fiber.App { return app })
	cfg.Router = adapter.Router()
	if err := Register(cfg); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	return adapter.WrappedRouter()
}

func do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[*fiber.App]{}); err == nil {
		t.Fatalf("expected error when router is missing")
	}
	adapter := router.NewFiberAdapter(func(app *fiber.App) *fiber.App { return app })
	if err := Register(Config[*fiber.App]{Router: adapter.Router()}); err == nil {
		t.Fatalf("expected error when view query is missing")
	}
}

func TestViewRoute(t *testing.T) {
	view := &stubQuerier{view: dashboard.View{Code: "ordenes", Title: "Indicadores"}}
	app := newApp(t, Config[*fiber.App]{View: view})

	resp := do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/ordenes?lang=EN", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body dashboard.View
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "ordenes" || view.last.Code != "ordenes" || view.last.Locale != "en" {
		t.Fatalf("unexpected propagation %+v %+v", body, view.last)
	}
}

func TestViewRouteLocaleFallbacks(t *testing.T) {
	view := &stubQuerier{view: dashboard.View{Code: "general"}}
	app := newApp(t, Config[*fiber.App]{View: view})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/general", nil)
	req.Header.Set("Accept-Language", "en-US;q=0.9, es;q=0.8")
	do(t, app, req)
	if view.last.Locale != "en-us" {
		t.Fatalf("expected accept-language locale, got %q", view.last.Locale)
	}

	do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/general", nil))
	if view.last.Locale != dashboard.DefaultLocale {
		t.Fatalf("expected default locale, got %q", view.last.Locale)
	}
}

func TestViewRouteErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"not found": {goerrors.New("missing", goerrors.CategoryNotFound), http.StatusNotFound},
		"auth":      {goerrors.New("expired", goerrors.CategoryAuth), http.StatusUnauthorized},
		"transport": {errors.New("dial tcp: refused"), http.StatusBadGateway},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := newApp(t, Config[*fiber.App]{View: &stubQuerier{err: tc.err}})
			resp := do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/general", nil))
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			var body httpapi.ErrorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == "" {
				t.Fatalf("expected an error message")
			}
		})
	}
}

func TestCustomErrorHook(t *testing.T) {
	called := false
	app := newApp(t, Config[*fiber.App]{
		View: &stubQuerier{err: errors.New("boom")},
		OnError: func(ctx router.Context, err error) error {
			called = true
			return ctx.JSON(http.StatusTeapot, map[string]string{"error": err.Error()})
		},
	})
	resp := do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/general", nil))
	if !called || resp.StatusCode != http.StatusTeapot {
		t.Fatalf("expected custom error hook, got %d", resp.StatusCode)
	}
}

func TestPanelRoute(t *testing.T) {
	panels, err := dashboard.NewPanelRenderer(nil)
	if err != nil {
		t.Fatalf("panel renderer: %v", err)
	}
	view := &stubQuerier{view: dashboard.View{
		Code:        "equipos",
		Cards:       []dashboard.CardView{{Label: "Equipos", Value: "120"}},
		GeneratedAt: time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC),
	}}
	app := newApp(t, Config[*fiber.App]{View: view, Panels: panels})

	resp := do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/equipos/panel", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %q", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `data-card="Equipos">120<`) {
		t.Fatalf("expected card markup, got %s", raw)
	}
	if !strings.Contains(string(raw), "2024-03-09 14:05") {
		t.Fatalf("expected generated stamp, got %s", raw)
	}

	view.err = goerrors.New("expired", goerrors.CategoryAuth)
	resp = do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/equipos/panel", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPanelRouteNeedsRenderer(t *testing.T) {
	app := newApp(t, Config[*fiber.App]{View: &stubQuerier{}})
	resp := do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/equipos/panel", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without a panel renderer, got %d", resp.StatusCode)
	}
}

func TestRefreshRoute(t *testing.T) {
	refresh := &stubCommander[commands.RefreshDashboardInput]{}
	app := newApp(t, Config[*fiber.App]{View: &stubQuerier{}, Refresh: refresh})

	resp := do(t, app, httptest.NewRequest(http.MethodPost, "/api/dashboard/visitas/refresh", nil))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if refresh.calls != 1 || refresh.last.Code != "visitas" {
		t.Fatalf("expected dashboard code propagation, got %+v", refresh.last)
	}

	refresh.err = goerrors.New("missing", goerrors.CategoryNotFound)
	resp = do(t, app, httptest.NewRequest(http.MethodPost, "/api/dashboard/nada/refresh", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
