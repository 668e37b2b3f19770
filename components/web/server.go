// Package web serves the admin: login, dashboards, the generic module
// pages, exports and the equipment map.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	gocommand "github.com/goliatone/go-command"
	router "github.com/goliatone/go-router"
	"github.com/goliatone/go-users/pkg/types"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard"
	dashcommands "github.com/goliatone/go-maintenance-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/gorouter"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/httpapi"
	dashqueries "github.com/goliatone/go-maintenance-dashboard/components/dashboard/queries"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/components/modules/commands"
	"github.com/goliatone/go-maintenance-dashboard/components/modules/queries"
	"github.com/goliatone/go-maintenance-dashboard/components/session"
	"github.com/goliatone/go-maintenance-dashboard/pkg/activity"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// Backend is the slice of the REST client the admin uses.
type Backend interface {
	List(ctx context.Context, resource string, query backend.ListQuery) (backend.Page, error)
	Get(ctx context.Context, resource, id string) (backend.Record, error)
	Create(ctx context.Context, resource string, record backend.Record) (backend.Record, error)
	Update(ctx context.Context, resource, id string, record backend.Record) (backend.Record, error)
	Delete(ctx context.Context, resource, id string) error
	Catalog(ctx context.Context, name string) ([]backend.Record, error)
	Export(ctx context.Context, resource, format string, query backend.ListQuery) (backend.ExportRef, error)
	Login(ctx context.Context, username, password string) (backend.LoginResult, error)
}

// Telemetry receives command events.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// Config wires the admin.
type Config struct {
	Backend    Backend
	Modules    *modules.Registry
	Dashboards *dashboard.Aggregator
	Broadcast  *dashboard.BroadcastHook
	Sessions   session.Store
	SessionTTL time.Duration
	// Views caches list views per session; one is created when nil.
	Views         *listview.Cache
	MapsAPIKey    string
	ChartAssets   string
	ChartTheme    string
	Locale        string
	SecureCookies bool
	Heartbeat     time.Duration
	Telemetry     Telemetry
	// Activity receives an audit record for every record change and export.
	Activity types.ActivitySink
	Logger   *slog.Logger
	Now      func() time.Time
	// Shutdown closes open event streams.
	Shutdown context.Context
}

// Server is the admin application.
type Server struct {
	cfg   Config
	app   *fiber.App
	views *listview.Cache

	list     *queries.ListRecordsQuery
	get      *queries.GetRecordQuery
	catalogs *queries.CatalogQuery
	save     *commands.SaveRecordCommand
	remove   *commands.DeleteRecordCommand
	exports  *commands.RequestExportCommand
	api      *httpapi.Handlers
	dashView gocommand.Querier[dashqueries.LoadDashboardInput, dashboard.View]
	refresh  gocommand.Commander[dashcommands.RefreshDashboardInput]
	panels   *dashboard.PanelRenderer
}

// New validates cfg and registers every route.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Backend == nil:
		return nil, errors.New("web: backend is required")
	case cfg.Modules == nil:
		return nil, errors.New("web: module registry is required")
	case cfg.Dashboards == nil:
		return nil, errors.New("web: dashboard aggregator is required")
	case cfg.Sessions == nil:
		return nil, errors.New("web: session store is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.Locale == "" {
		cfg.Locale = dashboard.DefaultLocale
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Broadcast == nil {
		cfg.Broadcast = dashboard.NewBroadcastHook()
	}
	if cfg.Shutdown == nil {
		cfg.Shutdown = context.Background()
	}
	views := cfg.Views
	if views == nil {
		views = listview.NewCache(0, 0)
	}

	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	panels, err := dashboard.NewPanelRenderer(nil)
	if err != nil {
		return nil, err
	}

	telemetry := cfg.Telemetry
	if cfg.Activity != nil {
		telemetry = activity.Hook{
			Sink:   cfg.Activity,
			Next:   cfg.Telemetry,
			Actor:  sessionActor,
			Now:    cfg.Now,
			Logger: cfg.Logger,
		}
	}

	s := &Server{
		cfg:      cfg,
		views:    views,
		list:     queries.NewListRecordsQuery(cfg.Modules, cfg.Backend),
		get:      queries.NewGetRecordQuery(cfg.Modules, cfg.Backend),
		catalogs: queries.NewCatalogQuery(cfg.Backend),
		save:     commands.NewSaveRecordCommand(cfg.Modules, cfg.Backend, telemetry),
		remove:   commands.NewDeleteRecordCommand(cfg.Modules, cfg.Backend, telemetry),
		exports:  commands.NewRequestExportCommand(cfg.Modules, cfg.Backend, telemetry),
		dashView: dashqueries.NewDashboardViewQuery(cfg.Dashboards),
		refresh:  dashcommands.NewRefreshDashboardCommand(cfg.Dashboards, cfg.Broadcast, cfg.Telemetry),
		panels:   panels,
	}
	s.api = &httpapi.Handlers{
		Broadcast: cfg.Broadcast,
		Heartbeat: cfg.Heartbeat,
		Shutdown:  cfg.Shutdown,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "maintenance-admin",
		DisableStartupMessage: true,
		Views:                 engine,
		ViewsLayout:           "layouts/main",
		ErrorHandler:          s.errorHandler,
	})
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes() error {
	app := s.app
	app.Use(requestLogger(s.cfg.Logger))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Use(session.Middleware(session.MiddlewareOptions{
		Store:  s.cfg.Sessions,
		Public: []string{"/healthz"},
		Now:    s.cfg.Now,
		Logger: s.cfg.Logger,
	}))

	app.Get("/login", s.loginPage)
	app.Post("/login", s.loginSubmit)
	app.Post("/logout", s.logout)

	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/dashboard") })
	app.Get("/dashboard", s.dashboardPage)
	app.Get("/dashboard/:code", s.dashboardPage)
	if err := s.mountDashboardAPI(); err != nil {
		return err
	}
	app.Get("/events", s.api.HandleEvents)

	app.Get("/equipos/mapa", s.mapPage)

	app.Get("/m/:module", s.listPage)
	app.Get("/m/:module/new", s.newPage)
	app.Get("/m/:module/export.:format", s.exportDownload)
	app.Post("/m/:module/export", s.exportRequest)
	app.Post("/m/:module", s.createSubmit)
	app.Get("/m/:module/:id", s.detailPage)
	app.Get("/m/:module/:id/edit", s.editPage)
	app.Post("/m/:module/:id", s.updateSubmit)
	app.Get("/m/:module/:id/delete", s.confirmDeletePage)
	app.Post("/m/:module/:id/delete", s.deleteSubmit)
	return nil
}

// mountDashboardAPI registers the dashboard JSON and panel routes through
// go-router on the admin's fiber app.
func (s *Server) mountDashboardAPI() error {
	adapter := router.NewFiberAdapter(func(*fiber.App) *fiber.App { return s.app })
	err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:  adapter.Router().WithLogger(s.cfg.Logger.With("component", "router")),
		View:    s.dashView,
		Refresh: s.refresh,
		Panels:  s.panels,
		Locale:  s.routerLocale,
		OnError: s.apiError,
	})
	if err != nil {
		return err
	}
	s.app = adapter.WrappedRouter()
	return nil
}

// App exposes the fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// ShutdownWithContext stops the server.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// DropSessions forgets the list views of expired sessions.
func (s *Server) DropSessions(ids []string) {
	for _, id := range ids {
		s.views.DropSession(id)
	}
}

func (s *Server) locale(c *fiber.Ctx) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return s.cfg.Locale
}

func (s *Server) routerLocale(ctx router.Context) string {
	if lang := ctx.Query("lang"); lang != "" {
		return lang
	}
	return s.cfg.Locale
}

func sessionActor(ctx context.Context) (activity.Actor, bool) {
	sess, ok := session.FromStdContext(ctx)
	if !ok {
		return activity.Actor{}, false
	}
	return activity.Actor{ID: sess.User.ID, Email: sess.User.Email}, true
}
