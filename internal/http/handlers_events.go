package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"walleet/internal/log"
)

const keepAliveInterval = 25 * time.Second

func (s *Server) handleGetConnectivity(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]bool{"online": s.deps.Monitor.Online()}).Write(w)
}

// handleSetConnectivity records the online/offline events reported by the
// device. Going back online wakes the auto replay loop.
func (s *Server) handleSetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	changed := s.deps.Monitor.Set(*req.Online)
	NewJSONResponse().Body(map[string]bool{"online": *req.Online, "changed": changed}).Write(w)
}

// handleEvents streams server-sent events: "connectivity" on every state
// transition and "ledger" after every committed change or queue change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		ErrorResponse(http.StatusInternalServerError, "streaming unsupported").Write(w)
		return
	}
	ctx := r.Context()
	online := s.deps.Monitor.Subscribe(ctx)
	changes := s.deps.Ledger.Subscribe(ctx)
	queued := s.deps.Replay.QueueChanges(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, data any) bool {
		b, err := json.Marshal(data)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send("connectivity", map[string]bool{"online": s.deps.Monitor.Online()}) ||
		!send("ledger", s.ledgerEvent(r)) {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-online:
			if !ok || !send("connectivity", map[string]bool{"online": state}) {
				return
			}
		case _, ok := <-changes:
			if !ok || !send("ledger", s.ledgerEvent(r)) {
				return
			}
		case _, ok := <-queued:
			if !ok || !send("ledger", s.ledgerEvent(r)) {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type ledgerEvent struct {
	Count   int `json:"count"`
	Pending int `json:"pending"`
}

func (s *Server) ledgerEvent(r *http.Request) ledgerEvent {
	ev := ledgerEvent{Count: s.deps.Ledger.Len()}
	n, err := s.deps.Replay.PendingCount(r.Context())
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Queue count unavailable", log.FieldError, err)
	}
	ev.Pending = n
	return ev
}
