// Package memory provides a scriptable in-process Gateway.
package memory

import (
	"context"
	"sync"

	"walleet/internal/core"
)

// Gateway returns canned candidates or errors. When Hold is set, calls
// block until Release is called or their context ends.
type Gateway struct {
	mu      sync.Mutex
	results []core.Candidate
	err     error
	calls   int
	gate    chan struct{}
	started chan struct{}
}

func New(results ...core.Candidate) *Gateway {
	return &Gateway{results: results, started: make(chan struct{}, 64)}
}

func (g *Gateway) SetResults(cs ...core.Candidate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = cs
	g.err = nil
}

func (g *Gateway) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Hold makes following calls block until Release.
func (g *Gateway) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
}

func (g *Gateway) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate != nil {
		close(g.gate)
		g.gate = nil
	}
}

// Started receives one value per call as soon as the call begins.
func (g *Gateway) Started() <-chan struct{} {
	return g.started
}

func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *Gateway) Analyze(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error) {
	return g.respond(ctx)
}

func (g *Gateway) ParseTranscript(ctx context.Context, text string) ([]core.Candidate, error) {
	return g.respond(ctx)
}

func (g *Gateway) respond(ctx context.Context) ([]core.Candidate, error) {
	g.mu.Lock()
	g.calls++
	gate := g.gate
	g.mu.Unlock()

	select {
	case g.started <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	out := make([]core.Candidate, len(g.results))
	copy(out, g.results)
	return out, nil
}
