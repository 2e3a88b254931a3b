package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleSession handles GET /api/v1/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, QueryResponse{
		Data:      s.controller.State(),
		QueriedAt: time.Now().UTC(),
	})
}

// handleSessionRefresh handles POST /api/v1/session/refresh
func (s *Server) handleSessionRefresh(w http.ResponseWriter, r *http.Request) {
	s.controller.Refresh()
	s.logger.Info().Str("remote", r.RemoteAddr).Msg("session refresh requested")

	s.writeJSON(w, http.StatusAccepted, QueryResponse{
		Data:      s.controller.State(),
		QueriedAt: time.Now().UTC(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found: " + r.URL.Path})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}
