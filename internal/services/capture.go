package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walleet/internal/core"
	"walleet/internal/gateway"
	"walleet/internal/log"
	"walleet/internal/metrics"
	"walleet/internal/receipt"
)

// OutcomeKind tells the caller what to show after a capture.
type OutcomeKind string

const (
	NothingRecognized OutcomeKind = "nothing_recognized"
	Single            OutcomeKind = "single"
	Batch             OutcomeKind = "batch"
	Queued            OutcomeKind = "queued"
)

// CaptureOutcome is the result of analyzing a capture. Single and Batch carry
// drafts for the user to confirm; nothing has been written yet.
type CaptureOutcome struct {
	Kind    OutcomeKind  `json:"kind"`
	Draft   *core.Draft  `json:"draft,omitempty"`
	Drafts  []core.Draft `json:"drafts,omitempty"`
	ImageID string       `json:"imageId,omitempty"`
	Skipped int          `json:"skipped"`
}

// CaptureService runs the manual, photo and dictation entry flows.
type CaptureService struct {
	queue   ImageQueue
	ledger  Ledger
	gateway gateway.Gateway
	monitor Connectivity
	receipt receipt.Options
	logger  *log.Logger
	now     func() time.Time
}

type CaptureOption func(*CaptureService)

func WithReceiptOptions(opts receipt.Options) CaptureOption {
	return func(s *CaptureService) { s.receipt = opts }
}

func WithClock(now func() time.Time) CaptureOption {
	return func(s *CaptureService) { s.now = now }
}

func NewCaptureService(queue ImageQueue, ledger Ledger, g gateway.Gateway, monitor Connectivity, logger *log.Logger, opts ...CaptureOption) *CaptureService {
	s := &CaptureService{
		queue:   queue,
		ledger:  ledger,
		gateway: g,
		monitor: monitor,
		receipt: receipt.DefaultOptions(),
		logger:  log.OrDefault(logger, log.ComponentCapture),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddManual validates and commits a single hand-entered expense.
func (s *CaptureService) AddManual(ctx context.Context, d core.Draft) (core.Expense, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return core.Expense{}, err
	}
	return s.ledger.Add(ctx, d)
}

// Capture prepares a receipt photo and either analyzes it right away or, when
// the user asks for it or the device is offline, puts it in the queue.
func (s *CaptureService) Capture(ctx context.Context, data []byte, mimeType string, deferAnalysis bool) (CaptureOutcome, error) {
	img, err := receipt.Prepare(data, mimeType, s.receipt)
	if err != nil {
		return CaptureOutcome{}, err
	}

	if deferAnalysis || !s.monitor.Online() {
		return s.enqueue(ctx, img)
	}

	candidates, err := s.gateway.Analyze(ctx, img.Data, img.MimeType)
	if err != nil {
		s.logger.WarnContext(ctx, "Receipt analysis failed", log.FieldOperation, log.OpAnalyze, log.FieldError, err)
		return CaptureOutcome{}, err
	}

	drafts, skipped := core.AcceptAll(candidates, s.ledger.Today())
	metrics.CandidatesSkipped.Add(float64(skipped))
	s.logger.InfoContext(ctx, "Receipt analyzed", log.FieldCount, len(drafts), log.FieldSkipped, skipped)

	switch len(drafts) {
	case 0:
		return CaptureOutcome{Kind: NothingRecognized, Skipped: skipped}, nil
	case 1:
		return CaptureOutcome{Kind: Single, Draft: &drafts[0], Skipped: skipped}, nil
	default:
		return CaptureOutcome{Kind: Batch, Drafts: drafts, Skipped: skipped}, nil
	}
}

func (s *CaptureService) enqueue(ctx context.Context, img receipt.Image) (CaptureOutcome, error) {
	q := core.QueuedImage{
		ID:        core.NewID(),
		ImageData: img.Data,
		MimeType:  img.MimeType,
		CreatedAt: s.now(),
	}
	if err := s.queue.Enqueue(ctx, q); err != nil {
		return CaptureOutcome{}, fmt.Errorf("queue image: %w", err)
	}
	if n, err := s.queue.Count(ctx); err == nil {
		metrics.QueueDepth.Set(float64(n))
	}
	s.logger.InfoContext(ctx, "Receipt queued for later analysis", log.NewFields().
		WithOperation(log.OpEnqueue).
		WithImage(q.ID, q.MimeType, len(q.ImageData)).ToSlice()...)
	return CaptureOutcome{Kind: Queued, ImageID: q.ID}, nil
}

// Confirm commits the drafts the user accepted after a capture, all at once.
func (s *CaptureService) Confirm(ctx context.Context, drafts []core.Draft) ([]core.Expense, error) {
	normalized := make([]core.Draft, len(drafts))
	for i, d := range drafts {
		d = d.Normalize()
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("expense %d: %w", i+1, err)
		}
		normalized[i] = d
	}
	return s.ledger.AddMany(ctx, normalized)
}

// ParseVoice turns a dictated sentence into a prefilled draft. When the
// gateway cannot parse transcripts, or the device is offline, a local parser
// extracts what it can.
func (s *CaptureService) ParseVoice(ctx context.Context, transcript string) (CaptureOutcome, error) {
	candidates, err := s.parseTranscript(ctx, transcript)
	if err != nil {
		return CaptureOutcome{}, err
	}
	today := s.ledger.Today()
	for _, c := range candidates {
		d := c.Prefill(today)
		if d.Description == "" && !d.Amount.Positive() {
			continue
		}
		return CaptureOutcome{Kind: Single, Draft: &d}, nil
	}
	return CaptureOutcome{Kind: NothingRecognized}, nil
}

func (s *CaptureService) parseTranscript(ctx context.Context, transcript string) ([]core.Candidate, error) {
	if !s.monitor.Online() {
		return ParseTranscriptLocally(transcript), nil
	}
	p, ok := s.gateway.(gateway.TranscriptParser)
	if !ok {
		return ParseTranscriptLocally(transcript), nil
	}
	cs, err := p.ParseTranscript(ctx, transcript)
	if errors.Is(err, gateway.ErrUnsupported) || errors.Is(err, gateway.ErrNotConfigured) {
		return ParseTranscriptLocally(transcript), nil
	}
	return cs, err
}
