package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plenumlabs/scribe/config"
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/media"
	"github.com/plenumlabs/scribe/observability"
	"github.com/plenumlabs/scribe/queue"
	"github.com/plenumlabs/scribe/reconcile"
	"github.com/plenumlabs/scribe/server"
	"github.com/plenumlabs/scribe/store"
	"github.com/plenumlabs/scribe/transcription/whisper"
	"github.com/plenumlabs/scribe/worker"
)

func main() {
	configFile := flag.String("config", "", "path to config.yml (searched if empty)")
	envFile := flag.String("env", "", "path to .env file (searched if empty)")
	flag.Parse()

	if err := run(*configFile, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "scribed: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	cfg, err := config.Load(
		config.WithConfigFile(configFile),
		config.WithEnvFile(envFile),
	)
	if err != nil {
		return err
	}

	logger.Init(cfg.Logging)
	log := logger.New(&cfg.Logging, cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.Init(ctx, cfg.Observability, log)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}

	st, err := store.New(cfg.Store, log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	q := queue.New(cfg.Queue, log)

	provider := whisper.NewProvider(cfg.Whisper)
	if !provider.IsAvailable(ctx) {
		log.Warn("transcription backend is not reachable, jobs will retry", logger.Fields(
			"url", cfg.Whisper.URL,
		))
	}

	var metrics *worker.Metrics
	if cfg.Observability.Enabled() {
		metrics, err = worker.NewMetrics(observability.Meter("scribe/worker"))
		if err != nil {
			return fmt.Errorf("worker metrics: %w", err)
		}
	}

	normalizer := media.NewNormalizer(cfg.Segmenter)
	pool := worker.NewPool(cfg.Worker, st, q, provider, normalizer, metrics, log)

	// Workers get their own cancelation so in-flight segments can be
	// abandoned once the HTTP listener has drained.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()
	pool.Start(workCtx)

	reconciler := reconcile.New(cfg.Reconciler, st, q, log)
	if err := reconciler.Start(); err != nil {
		return fmt.Errorf("reconciler: %w", err)
	}

	segmenter := media.NewSegmenter(cfg.Segmenter, st, log)

	srv := server.New(cfg.Server, log)
	server.NewHandlers(st, q, segmenter, pool, reconciler, provider, log).Register(srv.Engine())
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	log.Info("scribed started", logger.Fields(
		"addr", srv.Addr(),
		"version", cfg.Version,
		"environment", cfg.Environment,
		"workers", cfg.Worker.Workers,
	))

	<-ctx.Done()
	stop()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("server shutdown", logger.ErrorFields("stop", err))
	}
	reconciler.Stop()
	cancelWork()
	pool.Wait()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("telemetry shutdown", logger.ErrorFields("shutdown", err))
	}

	log.Info("scribed stopped")
	return nil
}
