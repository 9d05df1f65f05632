package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"walleet/internal/core"
	"walleet/internal/gateway"
	"walleet/internal/log"
	"walleet/internal/metrics"
)

var (
	// ErrBusy rejects a request while another replay is running.
	ErrBusy = errors.New("a replay is already in progress")
	// ErrOffline rejects a replay while the device reports no connectivity.
	ErrOffline = errors.New("device is offline")
)

// ReplayResult describes one completed replay.
type ReplayResult struct {
	ImageID string         `json:"imageId"`
	Added   []core.Expense `json:"added"`
	Skipped int            `json:"skipped"`
}

// ReplayController runs the analysis of queued images once connectivity
// allows it. At most one replay runs at a time across the whole queue.
type ReplayController struct {
	queue   ImageQueue
	ledger  Ledger
	gateway gateway.Gateway
	monitor Connectivity
	logger  *log.Logger

	sem *semaphore.Weighted

	mu       sync.Mutex
	inFlight string
}

func NewReplayController(queue ImageQueue, ledger Ledger, g gateway.Gateway, monitor Connectivity, logger *log.Logger) *ReplayController {
	return &ReplayController{
		queue:   queue,
		ledger:  ledger,
		gateway: g,
		monitor: monitor,
		logger:  log.OrDefault(logger, log.ComponentReplay),
		sem:     semaphore.NewWeighted(1),
	}
}

// Replay analyzes the queued image id and commits its valid candidates. The
// image is removed once analysis succeeds, even if nothing valid was found.
// A failed analysis or commit leaves the image queued; nothing is retried.
func (c *ReplayController) Replay(ctx context.Context, id string) (ReplayResult, error) {
	if !c.monitor.Online() {
		metrics.ReplayOutcomes.WithLabelValues(metrics.OutcomeOffline).Inc()
		return ReplayResult{}, ErrOffline
	}
	if !c.sem.TryAcquire(1) {
		metrics.ReplayOutcomes.WithLabelValues(metrics.OutcomeBusy).Inc()
		c.logger.InfoContext(ctx, "Replay rejected, another replay is running", log.FieldImageID, id, "in_flight", c.InFlight())
		return ReplayResult{}, ErrBusy
	}
	defer c.sem.Release(1)

	return c.replay(ctx, id)
}

// ReplayAll replays every pending image, oldest first, and stops at the first
// failure. Images discarded during the sweep are skipped.
func (c *ReplayController) ReplayAll(ctx context.Context) ([]ReplayResult, error) {
	if !c.monitor.Online() {
		return nil, ErrOffline
	}
	if !c.sem.TryAcquire(1) {
		metrics.ReplayOutcomes.WithLabelValues(metrics.OutcomeBusy).Inc()
		return nil, ErrBusy
	}
	defer c.sem.Release(1)

	pending, err := c.queue.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list queued images: %w", err)
	}

	results := make([]ReplayResult, 0, len(pending))
	for _, img := range pending {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !c.monitor.Online() {
			return results, ErrOffline
		}
		res, err := c.replay(ctx, img.ID)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// replay runs one ANALYZING -> COMMITTING -> DEQUEUING cycle. Callers hold sem.
func (c *ReplayController) replay(ctx context.Context, id string) (ReplayResult, error) {
	c.setInFlight(id)
	defer c.setInFlight("")

	img, err := c.queue.Get(ctx, id)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("load queued image %s: %w", id, err)
	}

	c.logger.InfoContext(ctx, "Replaying queued image", log.NewFields().
		WithOperation(log.OpReplay).
		WithImage(img.ID, img.MimeType, len(img.ImageData)).ToSlice()...)

	candidates, err := c.gateway.Analyze(ctx, img.ImageData, img.MimeType)
	if err != nil {
		metrics.ReplayOutcomes.WithLabelValues(metrics.OutcomeFailed).Inc()
		c.logger.WarnContext(ctx, "Analysis failed, image stays queued", log.FieldImageID, id, log.FieldError, err)
		return ReplayResult{}, err
	}

	drafts, skipped := core.AcceptAll(candidates, c.ledger.Today())
	metrics.CandidatesSkipped.Add(float64(skipped))

	// Commit and dequeue run to completion once analysis succeeded.
	ctx = context.WithoutCancel(ctx)

	res := ReplayResult{ImageID: id, Skipped: skipped}
	if len(drafts) > 0 {
		added, err := c.ledger.AddMany(ctx, drafts)
		if err != nil {
			metrics.ReplayOutcomes.WithLabelValues(metrics.OutcomeFailed).Inc()
			c.logger.ErrorContext(ctx, "Commit failed, image stays queued", log.FieldImageID, id, log.FieldError, err)
			return ReplayResult{}, err
		}
		res.Added = added
	}

	if err := c.queue.Remove(ctx, id); err != nil {
		c.logger.ErrorContext(ctx, "Committed image could not be dequeued", log.FieldImageID, id, log.FieldError, err)
		return res, fmt.Errorf("dequeue image %s: %w", id, err)
	}
	c.refreshDepth(ctx)

	outcome := metrics.OutcomeCommitted
	if len(res.Added) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.ReplayOutcomes.WithLabelValues(outcome).Inc()
	c.logger.InfoContext(ctx, "Queued image replayed",
		log.FieldImageID, id,
		log.FieldCount, len(res.Added),
		log.FieldSkipped, skipped)
	return res, nil
}

// Discard removes a queued image without analyzing it. It fails with ErrBusy
// while that image is being replayed.
func (c *ReplayController) Discard(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight == id {
		return ErrBusy
	}
	if err := c.queue.Remove(ctx, id); err != nil {
		return fmt.Errorf("discard image %s: %w", id, err)
	}
	c.refreshDepth(ctx)
	c.logger.InfoContext(ctx, "Queued image discarded", log.FieldImageID, id, log.FieldOperation, log.OpDiscard)
	return nil
}

// InFlight returns the id being replayed, or "".
func (c *ReplayController) InFlight() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Pending lists the queued images, oldest first.
func (c *ReplayController) Pending(ctx context.Context) ([]core.QueuedImage, error) {
	return c.queue.ListAll(ctx)
}

// Image returns one queued image with its bytes.
func (c *ReplayController) Image(ctx context.Context, id string) (core.QueuedImage, error) {
	return c.queue.Get(ctx, id)
}

func (c *ReplayController) PendingCount(ctx context.Context) (int, error) {
	return c.queue.Count(ctx)
}

// QueueChanges returns a channel that receives a value after every enqueue or
// removal. Notifications are coalesced; the channel is closed when ctx ends.
func (c *ReplayController) QueueChanges(ctx context.Context) <-chan struct{} {
	return c.queue.Subscribe(ctx)
}

// Run replays the whole queue every time the device comes back online,
// until ctx is done.
func (c *ReplayController) Run(ctx context.Context) error {
	c.refreshDepth(ctx)
	changes := c.monitor.Subscribe(ctx)
	c.logger.InfoContext(ctx, "Auto replay started")
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Auto replay stopped")
			return nil
		case online, ok := <-changes:
			if !ok {
				return nil
			}
			if !online {
				continue
			}
			results, err := c.ReplayAll(ctx)
			switch {
			case err == nil:
				if len(results) > 0 {
					c.logger.InfoContext(ctx, "Queue replayed after reconnect", log.FieldCount, len(results))
				}
			case errors.Is(err, ErrBusy), errors.Is(err, ErrOffline), errors.Is(err, context.Canceled):
			default:
				c.logger.WarnContext(ctx, "Queue replay after reconnect stopped", log.FieldError, err)
			}
		}
	}
}

func (c *ReplayController) setInFlight(id string) {
	c.mu.Lock()
	c.inFlight = id
	c.mu.Unlock()
}

func (c *ReplayController) refreshDepth(ctx context.Context) {
	if n, err := c.queue.Count(ctx); err == nil {
		metrics.QueueDepth.Set(float64(n))
	}
}
