package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walleet/internal/core"
	"walleet/internal/gateway"
	"walleet/internal/gateway/memory"
)

type stubborn struct{ release chan struct{} }

func (s stubborn) Analyze(context.Context, []byte, string) ([]core.Candidate, error) {
	<-s.release
	return nil, nil
}

func TestWithTimeout_PassesResultsThrough(t *testing.T) {
	amount := decimal.RequireFromString("12.5")
	g := gateway.WithTimeout(memory.New(core.Candidate{Amount: &amount}), time.Second)

	cs, err := g.Analyze(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Amount.Equal(amount))
}

func TestWithTimeout_WrapsFailures(t *testing.T) {
	fake := memory.New()
	fake.SetError(errors.New("connection refused"))
	g := gateway.WithTimeout(fake, time.Second)

	_, err := g.Analyze(context.Background(), []byte("img"), "image/jpeg")
	var ge *core.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.False(t, ge.Timeout())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithTimeout_KeepsExistingGatewayError(t *testing.T) {
	fake := memory.New()
	inner := &core.GatewayError{Op: "decode", Err: gateway.ErrMalformedResponse}
	fake.SetError(inner)

	_, err := gateway.WithTimeout(fake, time.Second).Analyze(context.Background(), []byte("x"), "image/png")
	var ge *core.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "decode", ge.Op)
}

func TestWithTimeout_AbandonsBackendIgnoringContext(t *testing.T) {
	s := stubborn{release: make(chan struct{})}
	defer close(s.release)

	start := time.Now()
	_, err := gateway.WithTimeout(s, 50*time.Millisecond).Analyze(context.Background(), []byte("x"), "image/png")

	var ge *core.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.True(t, ge.Timeout())
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeout_TranscriptSupport(t *testing.T) {
	g := gateway.WithTimeout(memory.New(core.Candidate{Description: "pizza"}), time.Second)
	p, ok := g.(gateway.TranscriptParser)
	require.True(t, ok)
	cs, err := p.ParseTranscript(context.Background(), "pizza dieci euro")
	require.NoError(t, err)
	assert.Equal(t, "pizza", cs[0].Description)

	s := stubborn{release: make(chan struct{})}
	close(s.release)
	_, err = gateway.WithTimeout(s, time.Second).(gateway.TranscriptParser).ParseTranscript(context.Background(), "x")
	assert.ErrorIs(t, err, gateway.ErrUnsupported)
}

func TestUnavailable(t *testing.T) {
	_, err := gateway.Unavailable{}.Analyze(context.Background(), []byte("x"), "image/png")
	assert.True(t, core.IsGateway(err))
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
}
