package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"walleet/internal/core"
)

// ImageQueue is the offline receipt image queue. It lives in its own
// SQLite file so large payloads never touch the key-value store.
type ImageQueue struct {
	db  *sql.DB
	now func() time.Time

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
}

func NewImageQueue(dbPath string) (*ImageQueue, error) {
	db, err := openSQLite(dbPath, SchemaQueue)
	if err != nil {
		return nil, err
	}
	return &ImageQueue{db: db, now: time.Now, subs: make(map[chan struct{}]struct{})}, nil
}

func (q *ImageQueue) Close() error {
	if q.db != nil {
		return q.db.Close()
	}
	return nil
}

func (q *ImageQueue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Enqueue stores img, overwriting any image with the same id.
func (q *ImageQueue) Enqueue(ctx context.Context, img core.QueuedImage) error {
	if len(img.ImageData) == 0 {
		return core.ErrEmptyImage
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO queued_images (id, image_data, mime_type, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			image_data = excluded.image_data,
			mime_type = excluded.mime_type,
			created_at = excluded.created_at`,
		img.ID, img.ImageData, img.MimeType, img.CreatedAt.UnixNano())
	if err != nil {
		return &core.PersistenceError{Op: "enqueue", Key: img.ID, Err: err}
	}
	q.notify()
	return nil
}

// ListAll returns every pending image, oldest first.
func (q *ImageQueue) ListAll(ctx context.Context) ([]core.QueuedImage, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, image_data, mime_type, created_at
		FROM queued_images
		ORDER BY created_at, id`)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	var images []core.QueuedImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, &core.PersistenceError{Op: "list", Err: err}
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "list", Err: err}
	}
	return images, nil
}

// Get returns a single image or core.ErrNotFound.
func (q *ImageQueue) Get(ctx context.Context, id string) (core.QueuedImage, error) {
	img, err := scanImage(q.db.QueryRowContext(ctx, `
		SELECT id, image_data, mime_type, created_at
		FROM queued_images WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.QueuedImage{}, core.ErrNotFound
	}
	if err != nil {
		return core.QueuedImage{}, &core.PersistenceError{Op: "get", Key: id, Err: err}
	}
	return img, nil
}

// Remove deletes the image with id; removing an absent id is a no-op.
func (q *ImageQueue) Remove(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM queued_images WHERE id = ?`, id)
	if err != nil {
		return &core.PersistenceError{Op: "remove", Key: id, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		q.notify()
	}
	return nil
}

// Count returns the number of pending images.
func (q *ImageQueue) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queued_images`).Scan(&n); err != nil {
		return 0, &core.PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

// Subscribe returns a channel that receives a value after every enqueue or
// effective removal. Notifications are coalesced; the channel is closed when
// ctx ends.
func (q *ImageQueue) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	q.subsMu.Lock()
	q.subs[ch] = struct{}{}
	q.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		q.subsMu.Lock()
		delete(q.subs, ch)
		close(ch)
		q.subsMu.Unlock()
	}()
	return ch
}

func (q *ImageQueue) notify() {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()
	for ch := range q.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(row scanner) (core.QueuedImage, error) {
	var (
		img     core.QueuedImage
		created int64
	)
	if err := row.Scan(&img.ID, &img.ImageData, &img.MimeType, &created); err != nil {
		return core.QueuedImage{}, err
	}
	img.CreatedAt = time.Unix(0, created).UTC()
	return img, nil
}
