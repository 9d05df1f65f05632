package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walleet/internal/config"
	"walleet/internal/core"
	"walleet/internal/gateway"
)

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	return Config{
		KV:             SQLiteKV,
		KVDBPath:       filepath.Join(dir, "walleet.db"),
		QueueDBPath:    filepath.Join(dir, "queue.db"),
		Gateway:        NoGateway,
		GatewayTimeout: time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad kv", func(c *Config) { c.KV = "etcd" }, true},
		{"bad gateway", func(c *Config) { c.Gateway = "openai" }, true},
		{"sqlite without path", func(c *Config) { c.KVDBPath = "" }, true},
		{"redis without addr", func(c *Config) { c.KV = RedisKV }, true},
		{"memory", func(c *Config) { c.KV = MemoryKV; c.KVDBPath = "" }, false},
		{"no queue path", func(c *Config) { c.QueueDBPath = "" }, true},
		{"gemini without key", func(c *Config) { c.Gateway = GeminiGateway }, true},
		{"amqp without url", func(c *Config) { c.Gateway = AMQPGateway }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidate_ListsChoices(t *testing.T) {
	cfg := testConfig(t)
	cfg.KV = "etcd"
	assert.EqualError(t, cfg.Validate(), `invalid kv backend "etcd": must be one of [sqlite redis memory]`)

	cfg = testConfig(t)
	cfg.Gateway = "openai"
	assert.EqualError(t, cfg.Validate(), `invalid gateway backend "openai": must be one of [gemini amqp none]`)
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil, nil)
	require.Error(t, err)

	app := &config.Config{
		KVBackend:      config.KVBackendRedis,
		RedisAddr:      "localhost:6379",
		RedisPrefix:    "w:",
		QueueDBPath:    "/tmp/q.db",
		GatewayBackend: config.GatewayNone,
		GatewayTimeout: 5 * time.Second,
		Timezone:       "UTC",

		GatewayCacheSize: 32,
		GatewayCacheTTL:  time.Hour,
	}
	cfg, err := FromAppConfig(app, []string{"Casa"})
	require.NoError(t, err)
	assert.Equal(t, RedisKV, cfg.KV)
	assert.Equal(t, NoGateway, cfg.Gateway)
	assert.Equal(t, []string{"Casa"}, cfg.Categories)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 32, cfg.CacheSize)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}

func TestCreateBackend_SQLiteWithoutGateway(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, testConfig(t))
	require.NoError(t, err)
	defer res.Close()

	for name, check := range res.Checks {
		assert.NoError(t, check(ctx), name)
	}
	assert.Contains(t, res.Checks, "kv")
	assert.Contains(t, res.Checks, "queue")

	_, err = res.Gateway.Analyze(ctx, []byte("img"), "image/jpeg")
	var ge *core.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)

	require.NoError(t, res.KV.Set(ctx, "k", "v"))
	var got string
	found, err := res.KV.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)
}

func TestCreateBackend_MemoryKV(t *testing.T) {
	cfg := testConfig(t)
	cfg.KV = MemoryKV
	res, err := NewFactory(nil).CreateBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, res.KV.Ping(context.Background()))
	assert.NoError(t, res.Close())
}

func TestResultClose_ReverseOrder(t *testing.T) {
	var order []int
	r := &Result{cleanup: []CleanupFunc{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errors.New("queue") },
		func() error { order = append(order, 3); return errors.New("gateway") },
	}}
	assert.EqualError(t, r.Close(), "gateway")
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.NoError(t, r.Close(), "cleanups run once")
}
