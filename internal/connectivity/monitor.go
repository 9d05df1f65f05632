// Package connectivity tracks the network state reported by the client device.
package connectivity

import (
	"context"
	"sync"

	"walleet/internal/log"
	"walleet/internal/metrics"
)

// Monitor holds the last reported online state. It never probes the network
// itself; the presentation layer forwards the device's online/offline events.
type Monitor struct {
	logger *log.Logger

	mu     sync.Mutex
	online bool
	subs   map[chan bool]struct{}
}

func NewMonitor(initial bool, logger *log.Logger) *Monitor {
	m := &Monitor{
		logger: log.OrDefault(logger, log.ComponentConnectivity),
		online: initial,
		subs:   make(map[chan bool]struct{}),
	}
	metrics.Online.Set(gauge(initial))
	return m
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the reported state and reports whether it changed.
// Subscribers only see changes.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return false
	}
	m.online = online
	metrics.Online.Set(gauge(online))
	m.logger.Info("Connectivity changed", log.FieldOnline, online)

	for ch := range m.subs {
		// Keep only the latest state for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
	return true
}

// Subscribe delivers every state transition after the call. The channel is
// closed when ctx is done.
func (m *Monitor) Subscribe(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch
}

func gauge(online bool) float64 {
	if online {
		return 1
	}
	return 0
}
