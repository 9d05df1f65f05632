package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Local key-value store
	KVBackend   string
	KVDBPath    string
	RedisAddr   string
	RedisPrefix string

	// Offline image queue
	QueueDBPath string

	// Image analysis gateway
	GatewayBackend string
	GeminiAPIKey   string
	GeminiModel    string
	GatewayTimeout time.Duration
	// GatewayCacheSize bounds the analysis result cache; 0 disables it.
	GatewayCacheSize int
	GatewayCacheTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Replay
	AutoReplay bool

	// Receipt preprocessing
	ImageMaxDimension int
	ImageMaxBytes     int

	DataDir        string
	MetricsEnabled bool
	Timezone       string
}

const (
	KVBackendSQLite = "sqlite"
	KVBackendRedis  = "redis"
	KVBackendMemory = "memory"

	GatewayGemini = "gemini"
	GatewayAMQP   = "amqp"
	GatewayNone   = "none"
)

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		KVBackend:   getEnv("KV_BACKEND", KVBackendSQLite),
		KVDBPath:    getEnv("KV_DB_PATH", "./data/walleet.db"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPrefix: getEnv("REDIS_PREFIX", "walleet:"),

		QueueDBPath: getEnv("QUEUE_DB_PATH", "./data/queue.db"),

		GatewayBackend: getEnv("GATEWAY_BACKEND", GatewayGemini),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),

		GatewayCacheSize: getEnvInt("GATEWAY_CACHE_SIZE", 64),
		GatewayCacheTTL:  getEnvDuration("GATEWAY_CACHE_TTL", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "walleet"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "receipt_analysis"),

		AutoReplay: getEnvBool("AUTO_REPLAY", true),

		ImageMaxDimension: getEnvInt("IMAGE_MAX_DIMENSION", 2048),
		ImageMaxBytes:     getEnvInt("IMAGE_MAX_BYTES", 10<<20),

		DataDir:        getEnv("DATA_DIR", "./data"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		Timezone:       getEnv("TIMEZONE", "Local"),
	}

	return cfg
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels[:4]))
	}

	// Validate key-value backend
	validBackends := []string{KVBackendSQLite, KVBackendRedis, KVBackendMemory}
	if !slices.Contains(validBackends, c.KVBackend) {
		errors = append(errors, fmt.Sprintf("invalid kv backend '%s': must be one of %v", c.KVBackend, validBackends))
	}

	if c.KVBackend == KVBackendSQLite {
		if msg := checkDBPath("KV", c.KVDBPath); msg != "" {
			errors = append(errors, msg)
		}
	}
	if c.KVBackend == KVBackendRedis && c.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR cannot be empty when using redis backend")
	}

	if msg := checkDBPath("queue", c.QueueDBPath); msg != "" {
		errors = append(errors, msg)
	}
	if c.QueueDBPath != "" && c.KVBackend == KVBackendSQLite && filepath.Clean(c.QueueDBPath) == filepath.Clean(c.KVDBPath) {
		errors = append(errors, "QUEUE_DB_PATH must differ from KV_DB_PATH")
	}

	// Validate gateway backend
	validGateways := []string{GatewayGemini, GatewayAMQP, GatewayNone}
	if !slices.Contains(validGateways, c.GatewayBackend) {
		errors = append(errors, fmt.Sprintf("invalid gateway backend '%s': must be one of %v", c.GatewayBackend, validGateways))
	}
	if c.GatewayBackend == GatewayGemini && c.GeminiAPIKey == "" {
		errors = append(errors, "GEMINI_API_KEY is required when using gemini gateway")
	}
	if c.GatewayBackend == GatewayAMQP && c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required when using amqp gateway")
	}

	if c.GatewayTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid gateway timeout %v: must be at least 1 second", c.GatewayTimeout))
	} else if c.GatewayTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid gateway timeout %v: must be at most 10 minutes", c.GatewayTimeout))
	}

	if c.GatewayCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid gateway cache size %d: must not be negative", c.GatewayCacheSize))
	}
	if c.GatewayCacheSize > 0 && c.GatewayCacheTTL <= 0 {
		errors = append(errors, "GATEWAY_CACHE_TTL must be positive when the cache is enabled")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ImageMaxDimension < 256 || c.ImageMaxDimension > 8192 {
		errors = append(errors, fmt.Sprintf("invalid image max dimension %d: must be between 256 and 8192", c.ImageMaxDimension))
	}
	if c.ImageMaxBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid image max bytes %d: must be at least 1024", c.ImageMaxBytes))
	}

	if c.Timezone != "" && c.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// checkDBPath creates the parent directory of a SQLite file if needed.
func checkDBPath(name, path string) string {
	if path == "" {
		return fmt.Sprintf("%s database path cannot be empty", name)
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Sprintf("cannot create %s database directory '%s': %v", name, dir, err)
			}
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
