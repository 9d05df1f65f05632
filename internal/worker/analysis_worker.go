package worker

import (
	"context"
	"fmt"
	"log/slog"

	"walleet/internal/amqp"
	"walleet/internal/gateway"
)

// AnalysisWorker answers analysis requests received over AMQP by calling a
// local gateway backend.
type AnalysisWorker struct {
	gateway gateway.Gateway
}

func NewAnalysisWorker(g gateway.Gateway) *AnalysisWorker {
	return &AnalysisWorker{gateway: g}
}

// HandleRequest processes a single analysis request from AMQP
func (w *AnalysisWorker) HandleRequest(ctx context.Context, req *amqp.AnalysisRequest) (*amqp.AnalysisReply, error) {
	slog.InfoContext(ctx, "Processing analysis request",
		"request_id", req.ID,
		"kind", req.Kind,
		"image_bytes", len(req.Image))

	switch req.Kind {
	case amqp.KindImage:
		cs, err := w.gateway.Analyze(ctx, req.Image, req.MimeType)
		if err != nil {
			return nil, fmt.Errorf("analyze image: %w", err)
		}
		return &amqp.AnalysisReply{Candidates: cs}, nil

	case amqp.KindTranscript:
		p, ok := w.gateway.(gateway.TranscriptParser)
		if !ok {
			return nil, gateway.ErrUnsupported
		}
		cs, err := p.ParseTranscript(ctx, req.Text)
		if err != nil {
			return nil, fmt.Errorf("parse transcript: %w", err)
		}
		return &amqp.AnalysisReply{Candidates: cs}, nil

	default:
		return nil, fmt.Errorf("unknown request kind %q", req.Kind)
	}
}
