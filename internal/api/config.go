package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/show"
)

// activeLayoutRequest is the body of PUT /config/active-layout.
type activeLayoutRequest struct {
	DashboardID string `json:"dashboardId"`
}

// handleGetConfig returns the show document. The client roster is only
// included for callers who may administer it.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	doc := s.svc.Config()
	if !principalFrom(r.Context()).Can(auth.CapManageUsers, "") {
		doc.Clients = nil
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleReplaceConfig replaces the whole document, reinitialises state and
// restarts output.
func (s *Server) handleReplaceConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}
	doc, err := show.Parse(body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	saved, err := s.svc.ReplaceConfig(r.Context(), doc)
	if err != nil {
		s.logger.Warn("config replace failed", "error", err)
		writeServiceError(w, err)
		return
	}
	s.logger.Info("show configuration replaced",
		"fixtures", len(saved.Fixtures),
		"looks", len(saved.Looks),
		"protocol", saved.Output.Protocol,
	)
	writeJSON(w, http.StatusOK, saved)
}

// handleResetConfig restores the default document.
func (s *Server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.ResetConfig(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.logger.Info("show configuration reset to defaults")
	writeJSON(w, http.StatusOK, doc)
}

// handleSetActiveLayout selects the default dashboard.
func (s *Server) handleSetActiveLayout(w http.ResponseWriter, r *http.Request) {
	var req activeLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DashboardID == "" {
		writeBadRequest(w, "dashboardId is required")
		return
	}
	if err := s.svc.SetActiveLayout(r.Context(), req.DashboardID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
