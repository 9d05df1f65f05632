package storage

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"walleet/internal/core"
)

func TestRedisKV_KeyPrefix(t *testing.T) {
	kv := NewRedisKVWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "walleet:")
	defer kv.Close()

	assert.Equal(t, "walleet:expenses", kv.key(KeyExpenses))
	assert.Equal(t, "walleet:pinHash", kv.key(KeyPinHash))
}

func TestRedisKV_UnreachableServerReturnsPersistenceError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	kv := NewRedisKVWithClient(client, "walleet:")
	defer kv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := kv.Set(ctx, KeyExpenses, []core.Expense{})
	assert.True(t, core.IsPersistence(err))

	_, err = kv.Get(ctx, KeyExpenses, &[]core.Expense{})
	assert.True(t, core.IsPersistence(err))
}
