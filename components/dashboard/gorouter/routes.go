package gorouter

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/queries"
)

// LocaleResolver picks the display locale for a request.
type LocaleResolver func(router.Context) string

// Config wires the dashboard JSON and panel endpoints on a go-router router.
type Config[T any] struct {
	Router  router.Router[T]
	View    gocommand.Querier[queries.LoadDashboardInput, dashboard.View]
	Refresh gocommand.Commander[commands.RefreshDashboardInput]
	// Panels enables the HTML fragment route when set.
	Panels *dashboard.PanelRenderer
	Locale LocaleResolver
	// OnError renders failures. Defaults to the JSON error envelope.
	OnError  func(router.Context, error) error
	BasePath string
	Routes   RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	View    string
	Panel   string
	Refresh string
}

// Register mounts the dashboard API on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.View == nil {
		return errors.New("gorouter: view query is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/api/dashboard"
	}
	locale := cfg.Locale
	if locale == nil {
		locale = inferLocale
	}
	fail := cfg.OnError
	if fail == nil {
		fail = RespondError
	}

	group := cfg.Router.Group(base)

	group.Get(routes.View, router.WrapHandler(func(ctx router.Context) error {
		view, err := cfg.View.Query(ctx.Context(), queries.LoadDashboardInput{
			Code:   ctx.Param("code"),
			Locale: locale(ctx),
		})
		if err != nil {
			return fail(ctx, err)
		}
		return ctx.JSON(http.StatusOK, view)
	}))

	if cfg.Panels != nil {
		group.Get(routes.Panel, router.WrapHandler(func(ctx router.Context) error {
			view, err := cfg.View.Query(ctx.Context(), queries.LoadDashboardInput{
				Code:   ctx.Param("code"),
				Locale: locale(ctx),
			})
			if err != nil {
				return fail(ctx, err)
			}
			var buf bytes.Buffer
			if err := cfg.Panels.RenderPanel(view, &buf); err != nil {
				return fail(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "panel render failed"))
			}
			ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
			ctx.SetHeader("Cache-Control", "no-store")
			return ctx.Send(buf.Bytes())
		}))
	}

	if cfg.Refresh != nil {
		group.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
			code := ctx.Param("code")
			if err := cfg.Refresh.Execute(ctx.Context(), commands.RefreshDashboardInput{Code: code}); err != nil {
				return fail(ctx, err)
			}
			return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued", "code": code})
		}))
	}
	return nil
}

// RespondError writes the JSON error envelope for err.
func RespondError(ctx router.Context, err error) error {
	status, message := httpapi.StatusFor(err)
	body := httpapi.ErrorBody{Error: message}
	var typed *goerrors.Error
	if goerrors.As(err, &typed) {
		body.Code = typed.TextCode
	}
	return ctx.JSON(status, body)
}

func inferLocale(ctx router.Context) string {
	if locale := strings.TrimSpace(ctx.Query("lang")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := ctx.Header("Accept-Language"); header != "" {
		if lang := parseAcceptLanguage(header); lang != "" {
			return lang
		}
	}
	return dashboard.DefaultLocale
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" && token != "*" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.View == "" {
		routes.View = "/:code"
	}
	if routes.Panel == "" {
		routes.Panel = "/:code/panel"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/:code/refresh"
	}
	return routes
}
