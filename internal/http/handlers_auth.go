package http

import (
	"net/http"
)

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Auth.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}

func (s *Server) handleAuthSetup(w http.ResponseWriter, r *http.Request) {
	var req pinSetupRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Auth.Setup(r.Context(), req.PIN, req.Confirm); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req pinVerifyRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := s.deps.Auth.Verify(r.Context(), req.PIN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusUnauthorized
	}
	NewJSONResponse().Status(status).Body(map[string]bool{"valid": ok}).Write(w)
}

func (s *Server) handleBiometrics(w http.ResponseWriter, r *http.Request) {
	var req biometricsRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Auth.SetBiometrics(r.Context(), *req.Enabled); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.deps.Auth.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}
