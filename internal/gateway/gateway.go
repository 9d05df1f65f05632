// Package gateway defines the image analysis boundary: an opaque remote call
// that turns a receipt image into zero or more expense candidates.
package gateway

import (
	"context"
	"errors"
	"time"

	"walleet/internal/core"
	"walleet/internal/metrics"
)

// Gateway analyzes a receipt image.
type Gateway interface {
	Analyze(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error)
}

// TranscriptParser extracts expense candidates from dictated text.
type TranscriptParser interface {
	ParseTranscript(ctx context.Context, text string) ([]core.Candidate, error)
}

var (
	ErrUnsupported   = errors.New("operation not supported by this gateway")
	ErrNotConfigured = errors.New("no analysis backend configured")
)

// Unavailable is used when no backend is configured; every call fails with a
// GatewayError so queued images stay queued.
type Unavailable struct{}

func (Unavailable) Analyze(context.Context, []byte, string) ([]core.Candidate, error) {
	return nil, &core.GatewayError{Op: "analyze", Err: ErrNotConfigured}
}

func (Unavailable) ParseTranscript(context.Context, string) ([]core.Candidate, error) {
	return nil, &core.GatewayError{Op: "parse transcript", Err: ErrNotConfigured}
}

type timed struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout bounds every call to next by d and reports any failure as a
// *core.GatewayError. A backend that ignores its context is abandoned when
// the deadline passes.
func WithTimeout(next Gateway, d time.Duration) Gateway {
	return &timed{next: next, timeout: d}
}

func (t *timed) Analyze(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error) {
	return t.call(ctx, "analyze", func(ctx context.Context) ([]core.Candidate, error) {
		return t.next.Analyze(ctx, image, mimeType)
	})
}

func (t *timed) ParseTranscript(ctx context.Context, text string) ([]core.Candidate, error) {
	p, ok := t.next.(TranscriptParser)
	if !ok {
		return nil, &core.GatewayError{Op: "parse transcript", Err: ErrUnsupported}
	}
	return t.call(ctx, "parse transcript", func(ctx context.Context) ([]core.Candidate, error) {
		return p.ParseTranscript(ctx, text)
	})
}

type result struct {
	cs  []core.Candidate
	err error
}

func (t *timed) call(ctx context.Context, op string, fn func(context.Context) ([]core.Candidate, error)) ([]core.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan result, 1)
	go func() {
		cs, err := fn(ctx)
		done <- result{cs, err}
	}()

	var res result
	select {
	case res = <-done:
		if res.err != nil && ctx.Err() != nil {
			res.err = ctx.Err()
		}
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	metrics.GatewayLatency.WithLabelValues(metrics.Result(res.err)).Observe(time.Since(start).Seconds())

	if res.err != nil {
		var ge *core.GatewayError
		if errors.As(res.err, &ge) {
			return nil, ge
		}
		return nil, &core.GatewayError{Op: op, Err: res.err}
	}
	return res.cs, nil
}
