package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walleet/internal/amqp"
	"walleet/internal/core"
	"walleet/internal/gateway/memory"
)

func TestHandleRequest_Image(t *testing.T) {
	g := memory.New(core.Candidate{Description: "Farmacia"})
	w := NewAnalysisWorker(g)

	reply, err := w.HandleRequest(context.Background(), amqp.NewImageRequest([]byte("img"), "image/jpeg"))
	require.NoError(t, err)
	require.Len(t, reply.Candidates, 1)
	assert.Equal(t, "Farmacia", reply.Candidates[0].Description)
	assert.Equal(t, 1, g.Calls())
}

func TestHandleRequest_Transcript(t *testing.T) {
	w := NewAnalysisWorker(memory.New(core.Candidate{Description: "Cinema"}))

	reply, err := w.HandleRequest(context.Background(), amqp.NewTranscriptRequest("cinema otto euro"))
	require.NoError(t, err)
	assert.Equal(t, "Cinema", reply.Candidates[0].Description)
}

func TestHandleRequest_Errors(t *testing.T) {
	g := memory.New()
	g.SetError(errors.New("model overloaded"))
	w := NewAnalysisWorker(g)

	_, err := w.HandleRequest(context.Background(), amqp.NewImageRequest([]byte("img"), "image/jpeg"))
	assert.ErrorContains(t, err, "model overloaded")

	_, err = w.HandleRequest(context.Background(), &amqp.AnalysisRequest{ID: "x", Kind: "video"})
	assert.ErrorContains(t, err, "unknown request kind")
}
