// Package ledger keeps the user's expenses in memory and persists the whole
// collection to the local key-value store on every change.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"walleet/internal/core"
	"walleet/internal/log"
	"walleet/internal/metrics"
	"walleet/internal/storage"
)

type Options struct {
	Logger   *log.Logger
	Location *time.Location
	// NewID generates expense ids; core.NewID when nil.
	NewID func() string
}

// Ledger is safe for concurrent use. Mutations are serialized and each one
// is persisted before it becomes visible in memory.
type Ledger struct {
	kv     storage.KV
	logger *log.Logger
	loc    *time.Location
	newID  func() string

	mu    sync.RWMutex
	items []core.Expense

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
}

// Load reads the expense collection from kv. A store that was never written
// yields an empty ledger.
func Load(ctx context.Context, kv storage.KV, opts Options) (*Ledger, error) {
	l := &Ledger{
		kv:     kv,
		logger: log.OrDefault(opts.Logger, log.ComponentLedger),
		loc:    opts.Location,
		newID:  opts.NewID,
		subs:   make(map[chan struct{}]struct{}),
	}
	if l.loc == nil {
		l.loc = time.Local
	}
	if l.newID == nil {
		l.newID = core.NewID
	}

	var items []core.Expense
	if _, err := kv.Get(ctx, storage.KeyExpenses, &items); err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	l.items = items
	metrics.LedgerSize.Set(float64(len(items)))

	l.logger.InfoContext(ctx, "Ledger loaded", log.FieldCount, len(items))
	return l, nil
}

// Add stores a new expense with a fresh id.
func (l *Ledger) Add(ctx context.Context, d core.Draft) (core.Expense, error) {
	added, err := l.addMany(ctx, log.OpAdd, []core.Draft{d})
	if err != nil {
		return core.Expense{}, err
	}
	return added[0], nil
}

// AddMany stores several expenses with a single write. Either all of them
// are added or none is.
func (l *Ledger) AddMany(ctx context.Context, ds []core.Draft) ([]core.Expense, error) {
	if len(ds) == 0 {
		return nil, nil
	}
	return l.addMany(ctx, log.OpAddMany, ds)
}

func (l *Ledger) addMany(ctx context.Context, op string, ds []core.Draft) ([]core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := make([]core.Expense, len(ds))
	for i, d := range ds {
		added[i] = d.WithID(l.newID())
	}
	next := append(slices.Clone(l.items), added...)

	if err := l.commit(ctx, op, next); err != nil {
		return nil, err
	}
	l.logger.InfoContext(ctx, "Expenses added", log.FieldOperation, op, log.FieldCount, len(added))
	return added, nil
}

// Update replaces the expense with the same id. Unknown ids are ignored.
func (l *Ledger) Update(ctx context.Context, e core.Expense) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(e.ID)
	if i < 0 {
		l.logger.DebugContext(ctx, "Update of unknown expense ignored", log.FieldExpenseID, e.ID)
		return nil
	}
	next := slices.Clone(l.items)
	next[i] = e

	if err := l.commit(ctx, log.OpUpdate, next); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Expense updated", log.FieldExpenseID, e.ID)
	return nil
}

// Remove deletes the expense with id if present.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(l.items), i, i+1)

	if err := l.commit(ctx, log.OpRemove, next); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Expense removed", log.FieldExpenseID, id)
	return nil
}

// commit persists next and swaps it in. Callers hold l.mu.
func (l *Ledger) commit(ctx context.Context, op string, next []core.Expense) error {
	if err := l.kv.Set(ctx, storage.KeyExpenses, next); err != nil {
		metrics.LedgerMutations.WithLabelValues(op, metrics.Result(err)).Inc()
		l.logger.ErrorContext(ctx, "Failed to persist expenses", log.FieldOperation, op, log.FieldError, err)
		return fmt.Errorf("%s expense: %w", op, err)
	}
	l.items = next
	metrics.LedgerMutations.WithLabelValues(op, metrics.Result(nil)).Inc()
	metrics.LedgerSize.Set(float64(len(next)))
	l.notify()
	return nil
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.items, func(e core.Expense) bool { return e.ID == id })
}

// List returns a snapshot of every expense in insertion order.
func (l *Ledger) List() []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Get returns the expense with id.
func (l *Ledger) Get(id string) (core.Expense, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return core.Expense{}, false
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Today returns the current date in the ledger's time zone.
func (l *Ledger) Today() core.Date {
	return core.Today(l.loc)
}

// View returns the expenses in category ("all" for every one), newest first.
func (l *Ledger) View(category string) []core.Expense {
	return SortedByDateDescending(FilterByCategory(l.List(), category))
}

// Categories lists the distinct categories in use, sorted by name.
func (l *Ledger) Categories() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range l.List() {
		name := e.CategoryOrDefault()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dashboard summarizes the expenses in category ("all" for every one).
func (l *Ledger) Dashboard(category string) core.Dashboard {
	return Summarize(FilterByCategory(l.List(), category), l.Today())
}

// Subscribe returns a channel that receives a value after every successful
// mutation. Notifications are coalesced; the channel is closed when ctx ends.
func (l *Ledger) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	l.subsMu.Lock()
	l.subs[ch] = struct{}{}
	l.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		l.subsMu.Lock()
		delete(l.subs, ch)
		close(ch)
		l.subsMu.Unlock()
	}()
	return ch
}

func (l *Ledger) notify() {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
