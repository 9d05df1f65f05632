package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"walleet/internal/core"
)

type queuedImageView struct {
	ID        string    `json:"id"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int       `json:"size"`
	Replaying bool      `json:"replaying"`
}

func (s *Server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	pending, err := s.deps.Replay.Pending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	inFlight := s.deps.Replay.InFlight()
	images := make([]queuedImageView, len(pending))
	for i, img := range pending {
		images[i] = queuedImageView{
			ID:        img.ID,
			MimeType:  img.MimeType,
			CreatedAt: img.CreatedAt,
			Size:      len(img.ImageData),
			Replaying: img.ID == inFlight,
		}
	}
	NewJSONResponse().Body(map[string]any{
		"images":   images,
		"inFlight": inFlight,
		"online":   s.deps.Monitor.Online(),
	}).Write(w)
}

func (s *Server) handleQueueCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Replay.PendingCount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]int{"count": n}).Write(w)
}

// handleQueuedImage serves the stored bytes for the queue thumbnail.
func (s *Server) handleQueuedImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.deps.Replay.Image(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.ImageData)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.ImageData)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Replay.Replay(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Added == nil {
		res.Added = []core.Expense{}
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleReplayAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.deps.Replay.ReplayAll(r.Context())
	if err != nil && len(results) == 0 {
		writeError(w, r, err)
		return
	}
	body := map[string]any{"results": results}
	if err != nil {
		// Partial sweep: report what was committed and why it stopped.
		body["error"] = messageFor(err)
	}
	NewJSONResponse().Body(body).Write(w)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Replay.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}
