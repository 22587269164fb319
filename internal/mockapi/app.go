// Package mockapi runs the in-memory Hubbits API as a standalone HTTP
// server, with Prometheus metrics and demo data, so the CLI can be used
// without the production backend.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/g1appdev/hubbits/internal/apitest"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/common"
	"github.com/g1appdev/hubbits/internal/logging"
	"github.com/g1appdev/hubbits/internal/mockapi/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	api    *apitest.Server
	reg    *prometheus.Registry
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewText(os.Stdout, c.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	secret := c.SecretKey
	if secret == "" {
		s, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		secret = s
	}

	opts := []apitest.Option{
		apitest.WithLogger(logger.With("module", "mockapi")),
		apitest.WithSecret([]byte(secret)),
		apitest.WithAccessTTL(c.AccessTokenTTL),
		apitest.WithRegisterer(reg),
	}
	if c.RawLogin {
		opts = append(opts, apitest.WithRawLogin())
	}
	if c.RotateRefresh {
		opts = append(opts, apitest.WithRefreshRotation())
	}
	api := apitest.New(opts...)

	if c.Seed {
		if err := Seed(api); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	return &App{config: c, logger: logger, api: api, reg: reg}, nil
}

// Handler mounts the API and the metrics endpoint on one router.
func (app *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle(app.config.MetricsPath, promhttp.HandlerFor(app.reg, promhttp.HandlerOpts{Registry: app.reg}))
	r.Mount("/", app.api)
	return r
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (app *App) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{Handler: app.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", l.Addr().String(), "metrics", app.config.MetricsPath)
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	l, err := net.Listen("tcp", app.config.Address)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.Serve(ctx, l); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()
	wg.Wait()
}

// Seed creates the demo accounts and a few records:
// alice/secret12 (ROLE_USER) and admin/admin1234 (ROLE_ADMIN).
func Seed(api *apitest.Server) error {
	accounts := []struct {
		user     models.User
		password string
	}{
		{models.User{Username: "alice", Email: "alice@hubbits.test", FirstName: "Alice", LastName: "Doe", Role: string(models.RoleUser)}, "secret12"},
		{models.User{Username: "admin", Email: "admin@hubbits.test", FirstName: "Ada", LastName: "Min", Role: string(models.RoleAdmin)}, "admin1234"},
	}
	for _, a := range accounts {
		if _, err := api.AddUser(a.user, a.password); err != nil {
			return err
		}
	}

	api.AddPet(models.Pet{Name: "Rex", Type: "dog", Breed: "Labrador", Age: 3, Gender: "male", Status: "available", AllowSponsorship: true})
	api.AddPet(models.Pet{Name: "Mittens", Type: "cat", Breed: "Tabby", Age: 1, Gender: "female", Status: "available"})
	api.AddOpportunity(models.Opportunity{
		Title:                 "Shelter clean-up",
		Description:           "Help tidy the kennels",
		RegistrationStartDate: "2026-01-01",
		RegistrationEndDate:   "2026-12-31",
		VolunteerDatetime:     "2026-12-31T09:00",
		Location:              "Main shelter",
		VolunteersNeeded:      10,
	})
	return nil
}
