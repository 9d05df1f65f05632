// Package amqprpc forwards analysis calls to walleet-analyzer workers over AMQP.
package amqprpc

import (
	"context"
	"errors"

	"walleet/internal/amqp"
	"walleet/internal/core"
	"walleet/internal/gateway"
)

// Caller is the request/reply half of the AMQP client.
type Caller interface {
	Call(ctx context.Context, req *amqp.AnalysisRequest) (*amqp.AnalysisReply, error)
}

type Gateway struct {
	caller Caller
}

var (
	_ gateway.Gateway          = (*Gateway)(nil)
	_ gateway.TranscriptParser = (*Gateway)(nil)
)

func New(caller Caller) *Gateway {
	return &Gateway{caller: caller}
}

func (g *Gateway) Analyze(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error) {
	if len(image) == 0 {
		return nil, &core.GatewayError{Op: "analyze", Err: core.ErrEmptyImage}
	}
	return g.call(ctx, "analyze", amqp.NewImageRequest(image, mimeType))
}

func (g *Gateway) ParseTranscript(ctx context.Context, text string) ([]core.Candidate, error) {
	return g.call(ctx, "parse transcript", amqp.NewTranscriptRequest(text))
}

func (g *Gateway) call(ctx context.Context, op string, req *amqp.AnalysisRequest) ([]core.Candidate, error) {
	reply, err := g.caller.Call(ctx, req)
	if err != nil {
		return nil, &core.GatewayError{Op: op, Err: err}
	}
	if reply.Error != "" {
		return nil, &core.GatewayError{Op: op, Err: errors.New(reply.Error)}
	}
	return reply.Candidates, nil
}
