package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"walleet/internal/receipt"
	"walleet/internal/services"
)

const multipartMemory = 8 << 20

// handleCapture accepts a receipt photo as multipart field "image". With
// defer=true, or while offline, the photo is queued instead of analyzed.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, fmt.Errorf("%w: upload over %d bytes", receipt.ErrTooLarge, s.deps.MaxUploadBytes))
			return
		}
		writeError(w, r, &badRequestError{msg: "expected a multipart form with an image"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, &badRequestError{msg: "image file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, &badRequestError{msg: "could not read the uploaded image"})
		return
	}

	out, err := s.deps.Capture.Capture(r.Context(), data, header.Header.Get("Content-Type"), parseBoolParam(r.FormValue("defer")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if out.Kind == services.Queued {
		status = http.StatusAccepted
	}
	NewJSONResponse().Status(status).Body(out).Write(w)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.deps.Capture.ParseVoice(r.Context(), sanitizeInput(req.Transcript))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(out).Write(w)
}
