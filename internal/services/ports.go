package services

import (
	"context"

	"walleet/internal/core"
)

// ImageQueue is the offline image queue store.
type ImageQueue interface {
	Enqueue(ctx context.Context, img core.QueuedImage) error
	ListAll(ctx context.Context) ([]core.QueuedImage, error)
	Get(ctx context.Context, id string) (core.QueuedImage, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Subscribe(ctx context.Context) <-chan struct{}
}

// Ledger is the part of the expense ledger the services write to.
type Ledger interface {
	Add(ctx context.Context, d core.Draft) (core.Expense, error)
	AddMany(ctx context.Context, ds []core.Draft) ([]core.Expense, error)
	Today() core.Date
}

// Connectivity reports the device's network state.
type Connectivity interface {
	Online() bool
	Subscribe(ctx context.Context) <-chan bool
}
