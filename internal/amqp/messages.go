package amqp

import (
	"encoding/json"
	"time"

	"walleet/internal/core"
)

// Request kinds.
const (
	KindImage      = "image"
	KindTranscript = "transcript"
)

// AnalysisRequest asks a worker to analyze a receipt image or a dictated sentence.
type AnalysisRequest struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Image     []byte    `json:"image,omitempty"`
	MimeType  string    `json:"mimeType,omitempty"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisReply carries the candidates found, or the worker-side failure.
type AnalysisReply struct {
	RequestID  string           `json:"requestId"`
	Candidates []core.Candidate `json:"candidates"`
	Error      string           `json:"error,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

func NewImageRequest(image []byte, mimeType string) *AnalysisRequest {
	return &AnalysisRequest{
		ID:        core.NewID(),
		Kind:      KindImage,
		Image:     image,
		MimeType:  mimeType,
		Timestamp: time.Now(),
	}
}

func NewTranscriptRequest(text string) *AnalysisRequest {
	return &AnalysisRequest{
		ID:        core.NewID(),
		Kind:      KindTranscript,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AnalysisRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AnalysisRequestFromJSON(data []byte) (*AnalysisRequest, error) {
	var msg AnalysisRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *AnalysisReply) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AnalysisReplyFromJSON(data []byte) (*AnalysisReply, error) {
	var msg AnalysisReply
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
