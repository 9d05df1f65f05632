package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"walleet/internal/connectivity"
	"walleet/internal/core"
	"walleet/internal/ledger"
	"walleet/internal/storage"
)

type fixture struct {
	kv      *storage.MemoryKV
	queue   *storage.ImageQueue
	ledger  *ledger.Ledger
	monitor *connectivity.Monitor
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	q, err := storage.NewImageQueue(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	kv := storage.NewMemoryKV()
	var mu sync.Mutex
	n := 0
	l, err := ledger.Load(context.Background(), kv, ledger.Options{
		Location: time.UTC,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("exp-%d", n)
		},
	})
	require.NoError(t, err)

	return &fixture{kv: kv, queue: q, ledger: l, monitor: connectivity.NewMonitor(online, nil)}
}

func (f *fixture) enqueue(t *testing.T, id string, at time.Time) {
	t.Helper()
	require.NoError(t, f.queue.Enqueue(context.Background(), core.QueuedImage{
		ID: id, ImageData: []byte("jpeg-" + id), MimeType: "image/jpeg", CreatedAt: at,
	}))
}

func (f *fixture) pending(t *testing.T) []string {
	t.Helper()
	images, err := f.queue.ListAll(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}

func candidate(desc, amount string) core.Candidate {
	c := core.Candidate{Description: desc}
	if amount != "" {
		d := decimal.RequireFromString(amount)
		c.Amount = &d
	}
	return c
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}
