package api

import (
	"io"
	"net/http"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/state"
)

// handleGetState returns the runtime state.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State())
}

// handleUpdateState is the REST form of the WebSocket update message.
// ?dashboardId= scopes the role check.
func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	dashboardID := r.URL.Query().Get("dashboardId")
	if !principalFrom(r.Context()).Can(auth.CapEdit, dashboardID) {
		writeForbidden(w, "your role does not allow changes")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}
	u, err := state.DecodeUpdate(body)
	if err != nil {
		writeBadRequest(w, "invalid update: "+err.Error())
		return
	}
	st, err := s.svc.ApplyUpdate(u)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
