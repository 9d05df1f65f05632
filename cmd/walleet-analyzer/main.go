package main

import (
	"context"
	"errors"
	"os"

	"walleet/internal/amqp"
	"walleet/internal/cache"
	"walleet/internal/cli"
	"walleet/internal/config"
	"walleet/internal/core"
	"walleet/internal/gateway"
	"walleet/internal/gateway/gemini"
	"walleet/internal/log"
	"walleet/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	logger.Info("Starting walleet-analyzer")

	// The analyzer always calls Gemini itself, whatever the server uses.
	cfg.GatewayBackend = config.GatewayGemini
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the analyzer")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	tax := cli.LoadTaxonomy(logger, cfg)
	client, err := gemini.New(ctx, gemini.Config{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		Categories: tax.Names(),
		Location:   cfg.Location(),
		Logger:     logger.WithComponent(log.ComponentGateway),
	})
	if err != nil {
		logger.Error("Failed to initialize Gemini client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	var g gateway.Gateway = gateway.WithTimeout(client, cfg.GatewayTimeout)
	if cfg.GatewayCacheSize > 0 {
		g = gateway.WithCache(g, cache.New[[]core.Candidate](cfg.GatewayCacheSize, cfg.GatewayCacheTTL))
	}
	w := worker.NewAnalysisWorker(g)
	if err := amqpClient.Consume(ctx, w.HandleRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
