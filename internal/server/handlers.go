package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/magicorntech/gcp-secret-manager/internal/health"
)

type healthResponse struct {
	Status    string                         `json:"status"`
	Timestamp time.Time                      `json:"timestamp"`
	Checks    map[string]health.ClientHealth `json:"checks"`
	LastSync  *health.SyncResult             `json:"last_sync,omitempty"`
}

type syncResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "gcp-secret-manager",
		"status":  "running",
		"endpoints": map[string]string{
			"health":  "/api/health",
			"sync":    "/api/sync",
			"metrics": "/metrics",
		},
	})
}

// handleHealth always answers 200; degradation is reported in the body so
// monitoring can alert without the probe killing the pod.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	snap := s.tracker.Report()

	status := "healthy"
	if !snap.Healthy() {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks: map[string]health.ClientHealth{
			"gcp":        snap.Source,
			"kubernetes": snap.Sink,
		},
		LastSync: snap.LastSync,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	if !s.authorized(r) {
		s.logger.Warn("rejected sync trigger with invalid token",
			zap.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or missing bearer token"})
		return
	}

	s.logger.Info("manual sync triggered via API")
	result := s.trigger.RunOnce(r.Context())

	resp := syncResponse{
		Status:    string(result.Outcome),
		Timestamp: result.Timestamp,
	}
	if result.Succeeded() {
		resp.Message = "secrets synced successfully"
	} else {
		resp.Message = result.Error
	}

	// A failed cycle is still a successful trigger; the outcome travels in
	// the body, not the status code.
	writeJSON(w, http.StatusOK, resp)
}

// authorized checks the bearer token in constant time. No configured token
// means the endpoint is open.
func (s *Server) authorized(r *http.Request) bool {
	if s.config.APIToken == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	token = strings.TrimSpace(token)

	return subtle.ConstantTimeCompare([]byte(token), []byte(s.config.APIToken)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
