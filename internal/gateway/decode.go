package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"walleet/internal/core"
)

var ErrMalformedResponse = errors.New("malformed analysis response")

// DecodeCandidates parses a model reply: a JSON array of candidates, a single
// candidate object, or an object wrapping an "expenses" array. Markdown code
// fences around the JSON are tolerated.
func DecodeCandidates(raw []byte) ([]core.Candidate, error) {
	raw = stripFences(bytes.TrimSpace(raw))
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	switch raw[0] {
	case '[':
		var cs []core.Candidate
		if err := json.Unmarshal(raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return cs, nil
	case '{':
		var wrapped struct {
			Expenses *[]core.Candidate `json:"expenses"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Expenses != nil {
			return *wrapped.Expenses, nil
		}
		var c core.Candidate
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return []core.Candidate{c}, nil
	case 'n':
		if string(raw) == "null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected %q", ErrMalformedResponse, truncate(raw, 32))
}

func stripFences(b []byte) []byte {
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	b = b[3:]
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	return bytes.TrimSpace(b)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
