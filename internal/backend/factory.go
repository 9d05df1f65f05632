package backend

import (
	"context"
	"fmt"
	"time"

	"walleet/internal/amqp"
	"walleet/internal/cache"
	"walleet/internal/core"
	"walleet/internal/gateway"
	"walleet/internal/gateway/amqprpc"
	"walleet/internal/gateway/gemini"
	"walleet/internal/log"
	"walleet/internal/storage"
)

const defaultGatewayTimeout = 30 * time.Second

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: log.OrDefault(logger, log.ComponentApp)}
}

// CreateBackend opens the stores and the gateway. On error everything opened
// so far is closed again.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (res *Result, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res = &Result{Checks: make(map[string]CheckFunc)}
	defer func() {
		if err != nil {
			_ = res.Close()
			res = nil
		}
	}()

	if res.KV, err = f.createKV(ctx, config); err != nil {
		return res, err
	}
	res.cleanup = append(res.cleanup, res.KV.Close)
	res.Checks["kv"] = res.KV.Ping

	if res.Queue, err = storage.NewImageQueue(config.QueueDBPath); err != nil {
		return res, fmt.Errorf("failed to open image queue: %w", err)
	}
	res.cleanup = append(res.cleanup, res.Queue.Close)
	res.Checks["queue"] = res.Queue.Ping

	g, cleanup, err := f.createGateway(ctx, config)
	if err != nil {
		return res, err
	}
	if cleanup != nil {
		res.cleanup = append(res.cleanup, cleanup)
	}
	timeout := config.GatewayTimeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	res.Gateway = gateway.WithTimeout(g, timeout)
	if config.CacheSize > 0 && config.Gateway != NoGateway {
		res.Gateway = gateway.WithCache(res.Gateway, cache.New[[]core.Candidate](config.CacheSize, config.CacheTTL))
	}

	f.logger.Info("Backend initialized",
		"kv_backend", config.KV.String(),
		"gateway_backend", config.Gateway.String(),
		"gateway_timeout", timeout.String(),
		"gateway_cache_size", config.CacheSize)
	return res, nil
}

func (f *DefaultFactory) createKV(ctx context.Context, config Config) (KVStore, error) {
	switch config.KV {
	case SQLiteKV:
		kv, err := storage.NewSQLiteKV(config.KVDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite kv store: %w", err)
		}
		f.logger.Info("Initialized SQLite kv store", "db_path", config.KVDBPath)
		return kv, nil
	case RedisKV:
		kv, err := storage.NewRedisKV(ctx, config.RedisAddr, config.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis kv store: %w", err)
		}
		f.logger.Info("Initialized Redis kv store", "addr", config.RedisAddr, "prefix", config.RedisPrefix)
		return kv, nil
	case MemoryKV:
		f.logger.Warn("Using in-memory kv store, data is lost on exit")
		return nopCloser{storage.NewMemoryKV()}, nil
	default:
		return nil, fmt.Errorf("unsupported kv backend: %s", config.KV)
	}
}

func (f *DefaultFactory) createGateway(ctx context.Context, config Config) (gateway.Gateway, CleanupFunc, error) {
	switch config.Gateway {
	case GeminiGateway:
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:     config.GeminiAPIKey,
			Model:      config.GeminiModel,
			Categories: config.Categories,
			Location:   config.Location,
			Logger:     f.logger.WithComponent(log.ComponentGateway),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Gemini gateway: %w", err)
		}
		f.logger.Info("Initialized Gemini gateway", "model", config.GeminiModel)
		return c, nil, nil
	case AMQPGateway:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize AMQP gateway: %w", err)
		}
		f.logger.Info("Initialized AMQP gateway", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		return amqprpc.New(client), client.Close, nil
	case NoGateway:
		f.logger.Warn("No analysis backend configured, receipts can only be queued")
		return gateway.Unavailable{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported gateway backend: %s", config.Gateway)
	}
}

type nopCloser struct {
	*storage.MemoryKV
}

func (nopCloser) Ping(context.Context) error { return nil }
func (nopCloser) Close() error               { return nil }
