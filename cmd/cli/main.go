package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/g1appdev/hubbits/internal/client/cli"
	"github.com/g1appdev/hubbits/internal/client/client"
	"github.com/g1appdev/hubbits/internal/client/config"
	"github.com/g1appdev/hubbits/internal/client/session"
	"github.com/g1appdev/hubbits/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// Set with -ldflags "-X main.buildVersion=...".
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
)

func main() {
	fmt.Printf("Build version: %s\nBuild date: %s\n", buildVersion, buildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	dbPath, err := cfg.EnsureDatabasePath()
	if err != nil {
		return err
	}

	logger := logging.NewText(os.Stderr, cfg.LogLevel)

	db, err := client.InitDatabase(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := session.New(session.NewSQLitePersistence(db), session.WithLogger(logger))

	reg := prometheus.NewRegistry()
	hc, err := client.New(cfg.ServerURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRefreshPath(cfg.RefreshPath),
		client.WithLogger(logger),
		client.WithMetrics(client.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}

	app := cli.NewApp(cli.Deps{
		Config:   cfg,
		Store:    store,
		API:      hc,
		Gatherer: reg,
		Logger:   logger,
	})

	// A saved session is checked in the background; commands that need
	// it wait for the outcome.
	go func() {
		if err := store.Init(ctx, app.Resolve); err != nil {
			logger.Warn(ctx, "session restore failed", "error", err)
		}
	}()

	app.Run(ctx)
	return nil
}
