package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walleet/internal/core"
)

func newTestQueue(t *testing.T) *ImageQueue {
	t.Helper()
	q, err := NewImageQueue(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestImageQueue_EnqueueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	require.NoError(t, q.Enqueue(ctx, core.QueuedImage{ID: "img-1", ImageData: []byte("first"), MimeType: "image/png"}))
	require.NoError(t, q.Enqueue(ctx, core.QueuedImage{ID: "img-1", ImageData: []byte("second"), MimeType: "image/jpeg"}))

	images, err := q.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, []byte("second"), images[0].ImageData)
	assert.Equal(t, "image/jpeg", images[0].MimeType)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImageQueue_ListAllIsStable(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, q.Enqueue(ctx, core.QueuedImage{
			ID:        id,
			ImageData: []byte(id),
			MimeType:  "image/jpeg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, q.Enqueue(ctx, core.QueuedImage{ID: "z", ImageData: []byte("z"), MimeType: "image/jpeg", CreatedAt: base}))

	first, err := q.ListAll(ctx)
	require.NoError(t, err)
	second, err := q.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ids := make([]string, len(first))
	for i, img := range first {
		ids[i] = img.ID
	}
	assert.Equal(t, []string{"c", "z", "a", "b"}, ids)
	assert.True(t, first[0].CreatedAt.Equal(base))
}

func TestImageQueue_GetAndRemove(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	require.NoError(t, q.Enqueue(ctx, core.QueuedImage{ID: "img", ImageData: []byte{0xff, 0xd8}, MimeType: "image/jpeg"}))

	img, err := q.Get(ctx, "img")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, img.ImageData)
	assert.False(t, img.CreatedAt.IsZero())

	require.NoError(t, q.Remove(ctx, "img"))
	require.NoError(t, q.Remove(ctx, "img"))

	_, err = q.Get(ctx, "img")
	assert.ErrorIs(t, err, core.ErrNotFound)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImageQueue_RejectsEmptyPayload(t *testing.T) {
	q := newTestQueue(t)
	err := q.Enqueue(context.Background(), core.QueuedImage{ID: "x", MimeType: "image/jpeg"})
	assert.ErrorIs(t, err, core.ErrEmptyImage)
}

func TestImageQueue_ClosedStoreReturnsPersistenceError(t *testing.T) {
	q := newTestQueue(t)
	require.NoError(t, q.Close())

	err := q.Enqueue(context.Background(), core.QueuedImage{ID: "x", ImageData: []byte("x"), MimeType: "image/jpeg"})
	assert.True(t, core.IsPersistence(err))
}

func TestImageQueue_SubscribeSignalsChanges(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	changes := q.Subscribe(ctx)

	received := func() bool {
		select {
		case <-changes:
			return true
		case <-time.After(time.Second):
			return false
		}
	}

	require.NoError(t, q.Enqueue(ctx, core.QueuedImage{ID: "img-1", ImageData: []byte("png")}))
	assert.True(t, received())

	require.NoError(t, q.Remove(ctx, "missing"))
	require.NoError(t, q.Remove(ctx, "img-1"))
	assert.True(t, received())
	select {
	case <-changes:
		t.Fatal("removing an absent image must not notify")
	default:
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-changes
		return !ok
	}, time.Second, 10*time.Millisecond)
}
