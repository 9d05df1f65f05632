package backend

import (
	"context"
	"time"

	"walleet/internal/gateway"
	"walleet/internal/storage"
)

// KVStore is a key-value backend that can be probed and closed.
type KVStore interface {
	storage.KV
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// CheckFunc probes a dependency for readiness.
type CheckFunc func(ctx context.Context) error

// Result holds the stores and gateway the application runs on.
type Result struct {
	KV      KVStore
	Queue   *storage.ImageQueue
	Gateway gateway.Gateway
	// Checks are keyed by dependency name, for /readyz.
	Checks  map[string]CheckFunc
	cleanup []CleanupFunc
}

// Close runs the cleanups in reverse order of creation.
func (r *Result) Close() error {
	var first error
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		if err := r.cleanup[i](); err != nil && first == nil {
			first = err
		}
	}
	r.cleanup = nil
	return first
}

// Factory builds backends from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	KV          KVType
	KVDBPath    string
	RedisAddr   string
	RedisPrefix string

	QueueDBPath string

	Gateway        GatewayType
	GeminiAPIKey   string
	GeminiModel    string
	GatewayTimeout time.Duration
	CacheSize      int
	CacheTTL       time.Duration
	// Categories are suggested to the analysis model.
	Categories []string
	Location   *time.Location

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type KVType string

const (
	SQLiteKV KVType = "sqlite"
	RedisKV  KVType = "redis"
	MemoryKV KVType = "memory"
)

func (t KVType) String() string {
	return string(t)
}

func (t KVType) IsValid() bool {
	switch t {
	case SQLiteKV, RedisKV, MemoryKV:
		return true
	default:
		return false
	}
}

type GatewayType string

const (
	GeminiGateway GatewayType = "gemini"
	AMQPGateway   GatewayType = "amqp"
	NoGateway     GatewayType = "none"
)

func (t GatewayType) String() string {
	return string(t)
}

func (t GatewayType) IsValid() bool {
	switch t {
	case GeminiGateway, AMQPGateway, NoGateway:
		return true
	default:
		return false
	}
}
