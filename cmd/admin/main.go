package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/components/session"
	"github.com/goliatone/go-maintenance-dashboard/components/web"
	"github.com/goliatone/go-maintenance-dashboard/pkg/activity"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

type cli struct {
	LogLevel  string `default:"info" enum:"debug,info,warn,error" env:"LOG_LEVEL" help:"Minimum log level."`
	LogFormat string `default:"text" enum:"text,json" env:"LOG_FORMAT" help:"Log output format."`
	Manifest  string `type:"path" env:"MODULES_MANIFEST" help:"Module manifest overriding the embedded one."`

	Serve   serveCmd   `cmd:"" default:"1" help:"Run the admin web server."`
	Modules modulesCmd `cmd:"" help:"List the configured modules."`
}

type serveCmd struct {
	Addr              string        `default:":8080" env:"ADMIN_ADDR" help:"Listen address."`
	BackendURL        string        `required:"" env:"BACKEND_URL" help:"Base URL of the REST backend."`
	BackendTimeout    time.Duration `default:"10s" env:"BACKEND_TIMEOUT" help:"Per request timeout against the backend."`
	BackendRPS        float64       `name:"backend-rps" default:"20" env:"BACKEND_RPS" help:"Outbound requests per second (0 disables limiting)."`
	BackendBurst      int           `default:"10" env:"BACKEND_BURST" help:"Outbound request burst."`
	MapsAPIKey        string        `name:"maps-api-key" env:"MAPS_API_KEY" help:"Google Maps key for the equipment map."`
	SessionStore      string        `default:"memory" enum:"memory,sqlite" env:"SESSION_STORE" help:"Session storage backend."`
	SessionDB         string        `name:"session-db" default:"sessions.db" env:"SESSION_DB" help:"SQLite file for the sqlite session store."`
	SessionTTL        time.Duration `name:"session-ttl" default:"12h" env:"SESSION_TTL" help:"Session lifetime."`
	SessionSweep      time.Duration `default:"1m" env:"SESSION_SWEEP" help:"Interval between expired session purges."`
	RefreshInterval   time.Duration `default:"5m" env:"REFRESH_INTERVAL" help:"Dashboard refresh broadcast interval (0 disables)."`
	ChartCacheTTL     time.Duration `name:"chart-cache-ttl" default:"5m" env:"CHART_CACHE_TTL" help:"Rendered chart cache lifetime."`
	ChartTheme        string        `env:"CHART_THEME" help:"ECharts theme."`
	EChartsAssetsHost string        `name:"echarts-assets-host" env:"ECHARTS_ASSETS_HOST" help:"Host serving the ECharts scripts."`
	Locale            string        `default:"es" env:"ADMIN_LOCALE" help:"Default dashboard locale."`
	SecureCookies     bool          `env:"SECURE_COOKIES" help:"Mark session cookies Secure."`
	ViewCacheSize     int           `default:"512" env:"VIEW_CACHE_SIZE" help:"Maximum cached list views."`
	ViewIdle          time.Duration `default:"30m" env:"VIEW_IDLE" help:"Idle time before a cached list view is dropped."`
	Dashboards        string        `type:"path" env:"DASHBOARDS_MANIFEST" help:"Extra dashboard manifest registered after the embedded one."`
}

type modulesCmd struct{}

func main() {
	var root cli
	ctx := kong.Parse(&root,
		kong.Name("admin"),
		kong.Description("Medical equipment maintenance admin."),
		kong.UsageOnError(),
	)
	logger := newLogger(root.LogLevel, root.LogFormat)
	slog.SetDefault(logger)
	ctx.Bind(&root, logger)
	ctx.FatalIfErrorf(ctx.Run())
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func loadModules(path string) (*modules.Registry, error) {
	if path == "" {
		return modules.DefaultRegistry()
	}
	doc, err := modules.ReadManifest(path)
	if err != nil {
		return nil, err
	}
	reg := modules.NewRegistry()
	if err := reg.LoadManifest(doc); err != nil {
		return nil, err
	}
	return reg, nil
}

func (cmd *modulesCmd) Run(root *cli) error {
	reg, err := loadModules(root.Manifest)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tRESOURCE\tTITLE\tGROUP\tFLAGS")
	for _, m := range reg.All() {
		var flags []string
		if m.ReadOnly {
			flags = append(flags, "read-only")
		}
		if m.Exportable {
			flags = append(flags, "export")
		}
		if m.Catalog {
			flags = append(flags, "catalog")
		}
		if m.Map {
			flags = append(flags, "map")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Code, m.Resource, m.Title, m.Group, strings.Join(flags, ","))
	}
	return w.Flush()
}

func (cmd *serveCmd) Run(root *cli, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mods, err := loadModules(root.Manifest)
	if err != nil {
		return err
	}
	client, err := backend.NewClient(backend.Config{
		BaseURL:   cmd.BackendURL,
		Timeout:   cmd.BackendTimeout,
		RateLimit: cmd.BackendRPS,
		Burst:     cmd.BackendBurst,
		UserAgent: "maintenance-admin",
	})
	if err != nil {
		return err
	}

	sessions, closeSessions, err := cmd.sessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	defs, err := dashboard.DefaultRegistry()
	if err != nil {
		return err
	}
	if cmd.Dashboards != "" {
		if _, err := defs.LoadManifestFile(cmd.Dashboards); err != nil {
			return err
		}
	}
	telemetry := dashboard.SlogTelemetry{Logger: logger, Level: slog.LevelDebug}
	aggregator := dashboard.NewAggregator(dashboard.Options{
		Definitions: defs,
		Stats:       dashboard.NewBackendStatsSource(client),
		Renderer: dashboard.NewEChartsRenderer(
			dashboard.WithChartTheme(cmd.ChartTheme),
			dashboard.WithChartAssetsHost(cmd.EChartsAssetsHost),
		),
		Cache:     dashboard.NewChartCache(cmd.ChartCacheTTL),
		Telemetry: telemetry,
		Theme:     cmd.ChartTheme,
	})
	broadcast := dashboard.NewBroadcastHook()

	srv, err := web.New(web.Config{
		Backend:       client,
		Modules:       mods,
		Dashboards:    aggregator,
		Broadcast:     broadcast,
		Sessions:      sessions,
		SessionTTL:    cmd.SessionTTL,
		Views:         listview.NewCache(cmd.ViewCacheSize, cmd.ViewIdle),
		MapsAPIKey:    cmd.MapsAPIKey,
		ChartAssets:   cmd.EChartsAssetsHost,
		ChartTheme:    cmd.ChartTheme,
		Locale:        cmd.Locale,
		SecureCookies: cmd.SecureCookies,
		Telemetry:     telemetry,
		Activity:      activity.LogSink{Logger: logger, Level: slog.LevelInfo},
		Logger:        logger,
		Shutdown:      ctx,
	})
	if err != nil {
		return err
	}

	go session.Sweep(ctx, sessions, cmd.SessionSweep, srv.DropSessions, logger)
	refresher := &dashboard.Refresher{
		Aggregator: aggregator,
		Hook:       broadcast,
		Interval:   cmd.RefreshInterval,
		Logger:     logger,
	}
	go refresher.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin listening", "addr", cmd.Addr, "backend", cmd.BackendURL, "session_store", cmd.SessionStore)
		errCh <- srv.Listen(cmd.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.ShutdownWithContext(shutdownCtx)
}

type sessionStore interface {
	session.Store
	session.Expirer
}

func (cmd *serveCmd) sessionStore(ctx context.Context) (sessionStore, func(), error) {
	switch cmd.SessionStore {
	case "sqlite":
		store, err := session.OpenSQLite(ctx, cmd.SessionDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "memory", "":
		return session.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, errors.New("admin: unknown session store " + cmd.SessionStore)
	}
}
