package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"walleet/internal/cache"
	"walleet/internal/core"
	"walleet/internal/metrics"
)

// WithCache remembers successful results of next by content, so analyzing
// the same photo or sentence twice costs one backend call. Failures are
// never cached.
func WithCache(next Gateway, c *cache.LRU[[]core.Candidate]) Gateway {
	return &cached{next: next, cache: c}
}

type cached struct {
	next  Gateway
	cache *cache.LRU[[]core.Candidate]
}

func (c *cached) Analyze(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error) {
	return c.lookup(cacheKey("image", mimeType, image), func() ([]core.Candidate, error) {
		return c.next.Analyze(ctx, image, mimeType)
	})
}

func (c *cached) ParseTranscript(ctx context.Context, text string) ([]core.Candidate, error) {
	p, ok := c.next.(TranscriptParser)
	if !ok {
		return nil, &core.GatewayError{Op: "parse transcript", Err: ErrUnsupported}
	}
	return c.lookup(cacheKey("text", "", []byte(text)), func() ([]core.Candidate, error) {
		return p.ParseTranscript(ctx, text)
	})
}

func (c *cached) lookup(key string, fn func() ([]core.Candidate, error)) ([]core.Candidate, error) {
	if cs, ok := c.cache.Get(key); ok {
		metrics.GatewayCacheLookups.WithLabelValues("hit").Inc()
		return slices.Clone(cs), nil
	}
	metrics.GatewayCacheLookups.WithLabelValues("miss").Inc()
	cs, err := fn()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, slices.Clone(cs))
	return cs, nil
}

func cacheKey(kind, mimeType string, data []byte) string {
	sum := sha256.Sum256(data)
	return kind + ":" + mimeType + ":" + hex.EncodeToString(sum[:])
}
