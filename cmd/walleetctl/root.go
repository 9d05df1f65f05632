package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"walleet/internal/auth"
	"walleet/internal/backend"
	"walleet/internal/config"
	"walleet/internal/connectivity"
	"walleet/internal/ledger"
	"walleet/internal/log"
	"walleet/internal/services"
	"walleet/internal/taxonomy"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "walleetctl",
		Short:         "Administer a walleet data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Log backend activity to stderr")

	root.AddCommand(newPINCmd(), newExpensesCmd(), newDashboardCmd(), newQueueCmd())
	return root
}

// env is everything a subcommand may need, opened from the same
// environment variables the server reads.
type env struct {
	cfg     *config.Config
	logger  *log.Logger
	tax     *taxonomy.Taxonomy
	backend *backend.Result
	ledger  *ledger.Ledger
	monitor *connectivity.Monitor
	capture *services.CaptureService
	replay  *services.ReplayController
	auth    *auth.Service
}

func openEnv(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Component: "walleetctl",
		Handler:   slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}),
	})

	cfg := config.Load()
	// Only receipt replay talks to the gateway, and it can run without one.
	if cfg.GatewayBackend == config.GatewayGemini && cfg.GeminiAPIKey == "" {
		cfg.GatewayBackend = config.GatewayNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tax := taxonomy.Load(cfg.DataDir)
	bcfg, err := backend.FromAppConfig(cfg, tax.Names())
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	l, err := ledger.Load(ctx, res.KV, ledger.Options{Logger: logger, Location: cfg.Location()})
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	monitor := connectivity.NewMonitor(true, logger)
	return &env{
		cfg:     cfg,
		logger:  logger,
		tax:     tax,
		backend: res,
		ledger:  l,
		monitor: monitor,
		capture: services.NewCaptureService(res.Queue, l, res.Gateway, monitor, logger),
		replay:  services.NewReplayController(res.Queue, l, res.Gateway, monitor, logger),
		auth:    auth.New(res.KV, auth.Options{Logger: logger}),
	}, nil
}

func (e *env) Close() error {
	return e.backend.Close()
}

// withEnv adapts a handler that needs the opened stores to cobra's RunE.
func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, args, e)
	}
}
