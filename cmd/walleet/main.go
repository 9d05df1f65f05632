package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"walleet/internal/auth"
	"walleet/internal/backend"
	"walleet/internal/cli"
	"walleet/internal/config"
	"walleet/internal/connectivity"
	apphttp "walleet/internal/http"
	"walleet/internal/ledger"
	"walleet/internal/log"
	"walleet/internal/receipt"
	"walleet/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	tax := cli.LoadTaxonomy(logger, cfg)
	bcfg, err := backend.FromAppConfig(cfg, tax.Names())
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	l, err := ledger.Load(ctx, res.KV, ledger.Options{
		Logger:   logger.WithComponent(log.ComponentLedger),
		Location: cfg.Location(),
	})
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	// The device reports its real state as soon as the app connects.
	monitor := connectivity.NewMonitor(true, logger.WithComponent(log.ComponentConnectivity))
	receiptOpts := receipt.DefaultOptions()
	receiptOpts.MaxBytes = cfg.ImageMaxBytes
	receiptOpts.MaxDimension = cfg.ImageMaxDimension
	capture := services.NewCaptureService(res.Queue, l, res.Gateway, monitor,
		logger.WithComponent(log.ComponentCapture), services.WithReceiptOptions(receiptOpts))
	replay := services.NewReplayController(res.Queue, l, res.Gateway, monitor, logger.WithComponent(log.ComponentReplay))

	readiness := make(map[string]apphttp.ReadinessCheck, len(res.Checks))
	for name, check := range res.Checks {
		readiness[name] = apphttp.ReadinessCheck(check)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:         l,
		Capture:        capture,
		Replay:         replay,
		Monitor:        monitor,
		Auth:           auth.New(res.KV, auth.Options{Logger: logger.WithComponent(log.ComponentAuth)}),
		Taxonomy:       tax,
		Logger:         logger,
		Readiness:      readiness,
		MetricsEnabled: cfg.MetricsEnabled,
		MaxUploadBytes: int64(cfg.ImageMaxBytes),
	})
	// No write timeout: the event stream and receipt analysis hold responses open.
	srv.ReadTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting walleet server",
			"port", cfg.Port,
			"expenses", l.Len(),
			"auto_replay", cfg.AutoReplay)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.AutoReplay {
		g.Go(func() error {
			return replay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
