package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"walleet/internal/core"
)

// Well-known keys of the local key-value store.
const (
	KeyExpenses          = "expenses"
	KeyPinHash           = "pinHash"
	KeyPinSalt           = "pinSalt"
	KeySetupComplete     = "isSetupComplete"
	KeyBiometricsEnabled = "biometricsEnabled"
)

// KV is the durable key-value store. Values are stored as JSON.
type KV interface {
	// Get decodes the value stored at key into dst. found is false when the
	// key has never been written.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// SQLiteKV keeps every key as one row of the kv table.
type SQLiteKV struct {
	db *sql.DB
}

var _ KV = (*SQLiteKV)(nil)

func NewSQLiteKV(dbPath string) (*SQLiteKV, error) {
	db, err := openSQLite(dbPath, SchemaKV)
	if err != nil {
		return nil, err
	}
	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteKV) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteKV) Get(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &core.PersistenceError{Op: "get", Key: key, Err: err}
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, &core.PersistenceError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &core.PersistenceError{Op: "encode", Key: key, Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw))
	if err != nil {
		return &core.PersistenceError{Op: "set", Key: key, Err: err}
	}
	slog.DebugContext(ctx, "Key persisted", "key", key, "bytes", len(raw))
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return &core.PersistenceError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// GetBool reads a boolean flag, treating a missing key as false.
func GetBool(ctx context.Context, kv KV, key string) (bool, error) {
	var v bool
	if _, err := kv.Get(ctx, key, &v); err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
