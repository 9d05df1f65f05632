package backend

import (
	"errors"
	"fmt"

	"walleet/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config, categories []string) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		KV:          KVType(appConfig.KVBackend),
		KVDBPath:    appConfig.KVDBPath,
		RedisAddr:   appConfig.RedisAddr,
		RedisPrefix: appConfig.RedisPrefix,

		QueueDBPath: appConfig.QueueDBPath,

		Gateway:        GatewayType(appConfig.GatewayBackend),
		GeminiAPIKey:   appConfig.GeminiAPIKey,
		GeminiModel:    appConfig.GeminiModel,
		GatewayTimeout: appConfig.GatewayTimeout,
		CacheSize:      appConfig.GatewayCacheSize,
		CacheTTL:       appConfig.GatewayCacheTTL,
		Categories:     categories,
		Location:       appConfig.Location(),

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.KV.IsValid() {
		return fmt.Errorf("invalid kv backend %q: must be one of %v", c.KV, KVTypes())
	}
	if !c.Gateway.IsValid() {
		return fmt.Errorf("invalid gateway backend %q: must be one of %v", c.Gateway, GatewayTypes())
	}

	switch c.KV {
	case SQLiteKV:
		if c.KVDBPath == "" {
			return errors.New("SQLite database path is required for sqlite kv backend")
		}
	case RedisKV:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for redis kv backend")
		}
	}

	if c.QueueDBPath == "" {
		return errors.New("queue database path is required")
	}

	switch c.Gateway {
	case GeminiGateway:
		if c.GeminiAPIKey == "" {
			return errors.New("Gemini API key is required for gemini gateway")
		}
	case AMQPGateway:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return errors.New("AMQP URL, exchange and queue are required for amqp gateway")
		}
	}
	return nil
}

func KVTypes() []KVType {
	return []KVType{SQLiteKV, RedisKV, MemoryKV}
}

func GatewayTypes() []GatewayType {
	return []GatewayType{GeminiGateway, AMQPGateway, NoGateway}
}
