package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/smartsaver/smartsaver/internal/api"
	"github.com/smartsaver/smartsaver/internal/app/ledger"
	"github.com/smartsaver/smartsaver/internal/infra/observability"
	"github.com/smartsaver/smartsaver/internal/infra/sqlite"
)

// Daemon is a running SmartSaver instance.
type Daemon struct {
	Config  Config
	Home    string
	Log     *logrus.Logger
	DB      *sqlite.DB
	Service *ledger.Service
	Hub     *api.EventHub
	Tracer  *observability.Tracer
}

// New opens storage and builds the ledger service. It does not start the
// HTTP server or the cron; CLI commands use it directly.
func New(ctx context.Context, cfg Config, home string) (*Daemon, error) {
	log, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.DBPath(home))
	if err != nil {
		return nil, err
	}

	tracer := observability.NewTracer(observability.DefaultSpanCapacity)
	hub := api.NewEventHub()
	svc, err := ledger.NewService(ctx, db, cal,
		ledger.WithLogger(log),
		ledger.WithNotifier(hub),
		ledger.WithMetrics(observability.NewRecorder(tracer)),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Daemon{
		Config:  cfg,
		Home:    home,
		Log:     log,
		DB:      db,
		Service: svc,
		Hub:     hub,
		Tracer:  tracer,
	}, nil
}

// Close releases storage.
func (d *Daemon) Close() error {
	return d.DB.Close()
}

// Handler builds the HTTP API handler.
func (d *Daemon) Handler() http.Handler {
	srv := api.NewServer(d.Service, d.Log)
	srv.SetEventHub(d.Hub)
	srv.SetTracer(d.Tracer)
	srv.SetAdminRateLimit(d.Config.API.AdminRatePerMinute)
	if d.Config.API.Metrics {
		srv.EnableMetrics()
	}
	return srv.Handler()
}

// StartScheduler runs a settlement check now and then on the configured
// cron spec. Stop the returned cron to end it.
func (d *Daemon) StartScheduler(ctx context.Context) (*cron.Cron, error) {
	loc, err := d.Config.Location()
	if err != nil {
		return nil, err
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cron.PrintfLogger(d.Log)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	check := func() {
		b, err := d.Service.CheckSettlement(ctx)
		if err != nil {
			d.Log.WithError(err).Error("settlement check failed")
			return
		}
		if b != nil {
			d.Log.WithFields(logrus.Fields{
				"allowance": b.Allowance.String(),
				"interest":  b.Interest.String(),
				"bonus":     b.Bonus.String(),
				"new_total": b.NewTotal.String(),
			}).Info("weekly settlement applied")
		}
	}
	if _, err := c.AddFunc(d.Config.Settlement.CheckSpec, check); err != nil {
		return nil, fmt.Errorf("schedule settlement check: %w", err)
	}
	check()
	c.Start()
	return c, nil
}

// Run serves the API and the settlement cron until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	c, err := d.StartScheduler(ctx)
	if err != nil {
		return err
	}
	defer c.Stop()

	server := &http.Server{
		Addr:              d.Config.Addr(),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.Log.WithField("addr", server.Addr).Info("api listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.Log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	}
}
