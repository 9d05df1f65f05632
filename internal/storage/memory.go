package storage

import (
	"context"
	"encoding/json"
	"sync"

	"walleet/internal/core"
)

// MemoryKV is an in-process KV used by tests and dry runs. Writes can be made
// to fail to simulate a full disk.
type MemoryKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failErr error
	writes  int
}

var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// FailWrites makes every following Set and Delete fail with err; nil restores writes.
func (m *MemoryKV) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Writes returns the number of successful Set calls.
func (m *MemoryKV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryKV) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &core.PersistenceError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &core.PersistenceError{Op: "encode", Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return &core.PersistenceError{Op: "set", Key: key, Err: m.failErr}
	}
	m.data[key] = raw
	m.writes++
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return &core.PersistenceError{Op: "delete", Key: key, Err: m.failErr}
	}
	delete(m.data, key)
	return nil
}
