package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/models"
)

// handleHealth responds to GET/HEAD /_gateway/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"phase":  string(s.app.Controller.Phase()),
	})
}

// handleVersion responds to GET /_gateway/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleStatus reports lifecycle phase, queue depth, and client count.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pending, err := s.app.SyncStore.CountPending(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to count pending sync items")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"phase":           string(s.app.Controller.Phase()),
		"pending_writes":  pending,
		"clients":         s.app.Hub.ClientCount(),
		"uptime_seconds":  int(time.Since(s.app.StartupTime).Seconds()),
		"shell_namespace": s.app.Cache.CurrentName(models.PurposeShell),
	})
}

// handleMessage accepts one control message: SKIP_WAITING, CACHE_CALCULATION,
// or SYNC.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var msg models.ControlMessage
	if !DecodeJSON(w, r, &msg) {
		return
	}

	if err := s.app.Controller.HandleMessage(r.Context(), &msg); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"phase":  string(s.app.Controller.Phase()),
	})
}

// handlePush ingests a trusted push payload and fans it out to clients.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var payload models.PushPayload
	if !DecodeJSON(w, r, &payload) {
		return
	}

	if err := s.app.Controller.HandlePush(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "delivered",
		"clients": s.app.Hub.ClientCount(),
	})
}

// handleCalculation reads back a calculation persisted via CACHE_CALCULATION.
func (s *Server) handleCalculation(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/_gateway/calc/")
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Calculation key required")
		return
	}

	resp, ok := s.app.Controller.GetCalculation(r.Context(), key)
	if !ok {
		WriteError(w, http.StatusNotFound, "No cached calculation for key: "+key)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
