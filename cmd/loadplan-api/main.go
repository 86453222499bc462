// Package main provides the loadplan-api server.
//
// The server stores cargo load plans and renders their reports. Mobile clients
// use it to fill in ULD numbers and record ULD status. Settings come
// from .env, LOADPLAN_CONFIG and the environment (see internal/config); the
// flags below override them.
//
// Usage:
//
//	loadplan-api [options]
//
// Options:
//
//	-port N             HTTP port (env: PORT)
//	-store DRIVER       sqlite or postgres (env: STORE_DRIVER)
//	-auth               Enable API key authentication
//	-api-keys KEYS      Comma-separated list of valid API keys
//
// API endpoints are served under /api/v1, metrics under /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cargo_loadplan/internal/api"
	"cargo_loadplan/internal/config"
	"cargo_loadplan/internal/events"
	"cargo_loadplan/internal/export"
	"cargo_loadplan/internal/importer"
	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/metrics"
	"cargo_loadplan/internal/reports"
	"cargo_loadplan/internal/status"
	"cargo_loadplan/internal/storage"
)

const shutdownTimeout = 15 * time.Second

type options struct {
	port        string
	store       string
	authEnabled bool
	apiKeys     []string
}

func main() {
	port := flag.String("port", "", "HTTP port (default from PORT)")
	store := flag.String("store", "", "Store driver: sqlite or postgres (default from STORE_DRIVER)")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Parse API keys.
	var keys []string
	if *apiKeys != "" {
		keys = strings.Split(*apiKeys, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, log, options{
		port:        *port,
		store:       *store,
		authEnabled: *authEnabled,
		apiKeys:     keys,
	})
	if err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger, opts options) error {
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.store != "" {
		cfg.StoreDriver = opts.store
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	store, err := storage.Open(ctx, cfg.Store())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	log.Info("store opened", "driver", cfg.StoreDriver)

	m := metrics.New("loadplan", prometheus.DefaultRegisterer)

	pub := events.Disabled()
	if cfg.NATSURL != "" {
		if pub, err = events.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix, log); err != nil {
			return err
		}
		log.Info("publishing events", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("nats drain failed", "error", err)
		}
	}()

	im := importer.New(store, log, m)
	im.OnImported(pub.ImportedHandler())

	tracker := status.NewTracker(store, log)
	tracker.OnStatusChanged(pub.StatusHandler())

	var recorder api.RunRecorder
	if chCfg, ok := cfg.ClickHouse(); ok {
		analytics, err := storage.OpenClickHouse(ctx, chCfg)
		if err != nil {
			return err
		}
		defer analytics.Close()
		if err := analytics.CreateSchema(ctx); err != nil {
			return err
		}
		recorder = analytics
		log.Info("recording report runs", "addr", chCfg.Addr)
	}

	server := api.NewServer(api.Options{
		Store:       store,
		Importer:    im,
		Tracker:     tracker,
		Parser:      loadplan.NewParser(log, m),
		Reports:     reports.NewGenerator(cfg.DefaultCarrier, m),
		Exporter:    export.New(nil, cfg.Location()),
		Analytics:   recorder,
		Metrics:     promhttp.Handler(),
		Logger:      log,
		AuthEnabled: opts.authEnabled,
		APIKeys:     opts.apiKeys,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("loadplan API listening", "addr", srv.Addr, "auth", opts.authEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
