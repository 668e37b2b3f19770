package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-maintenance-dashboard/pkg/fakeapi"
)

type cli struct {
	Addr     string         `default:":9090" env:"MOCKAPI_ADDR" help:"Listen address."`
	Seed     int64          `default:"42" env:"MOCKAPI_SEED" help:"Seed for the generated data."`
	Count    map[string]int `help:"Row count overrides per resource (e.g. --count clientes=100)."`
	Secret   string         `env:"MOCKAPI_SECRET" help:"HMAC secret used to sign tokens."`
	TokenTTL time.Duration  `name:"token-ttl" default:"8h" env:"MOCKAPI_TOKEN_TTL" help:"Issued token lifetime."`
	Debug    bool           `help:"Log every request."`
}

func main() {
	var root cli
	kctx := kong.Parse(&root,
		kong.Name("mockapi"),
		kong.Description("Demo REST backend for the maintenance admin."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(root.run())
}

func (c *cli) run() error {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := fakeapi.Options{
		Seed:     c.Seed,
		Counts:   c.Count,
		TokenTTL: c.TokenTTL,
		Logger:   logger,
	}
	if c.Secret != "" {
		opts.Secret = []byte(c.Secret)
	}
	srv, err := fakeapi.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mockapi listening", "addr", c.Addr, "seed", c.Seed,
			"admin", fakeapi.DemoAdminEmail, "tecnico", fakeapi.DemoTechEmail)
		errCh <- srv.Listen(c.Addr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown()
	}
}
