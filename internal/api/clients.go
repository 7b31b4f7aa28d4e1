package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/lumen-core/internal/auth"
)

type roleRequest struct {
	Role *auth.Role `json:"role"`
}

type nicknameRequest struct {
	Nickname string `json:"nickname"`
}

// handleListClients returns the client roster. Callers who may administer
// clients (globally, or on ?dashboardId=) see full ids; others see the
// roster only when connected users are shown to everyone.
func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	admin := p.Can(auth.CapManageUsers, r.URL.Query().Get("dashboardId"))
	show := s.svc.Access().ShowConnectedUsers

	clients := []ClientInfo{}
	if admin || show {
		clients = clientInfos(s.svc.Clients(), s.hub.Connections(), admin)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clients":            clients,
		"count":              len(clients),
		"showConnectedUsers": show,
	})
}

// handleSetRole sets a global role, or a dashboard role when the route
// carries {dashboardID}. Callers cannot grant more than they hold.
func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.Role == nil {
		writeBadRequest(w, "role is required")
		return
	}
	id := urlParam(r, "id")
	dashboardID := urlParam(r, "dashboardID")
	if !principalFrom(r.Context()).RoleOn(dashboardID).AtLeast(*req.Role) {
		writeForbidden(w, "cannot grant a role above your own")
		return
	}

	var (
		rec auth.ClientRecord
		err error
	)
	if dashboardID == "" {
		rec, err = s.svc.SetRole(r.Context(), id, *req.Role)
	} else {
		rec, err = s.svc.SetDashboardRole(r.Context(), id, dashboardID, *req.Role)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.logger.Info("client role changed",
		"client", auth.ShortID(id),
		"dashboard", dashboardID,
		"role", req.Role.String(),
	)
	writeJSON(w, http.StatusOK, rec)
}

// handleClearDashboardRole removes a dashboard grant. A caller may only clear
// a grant no higher than their own role there.
func (s *Server) handleClearDashboardRole(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	dashboardID := urlParam(r, "dashboardID")
	if rec, ok := s.svc.Client(id); ok {
		if granted, has := rec.DashboardRoles[dashboardID]; has && !principalFrom(r.Context()).RoleOn(dashboardID).AtLeast(granted) {
			writeForbidden(w, "cannot revoke a role above your own")
			return
		}
	}

	rec, err := s.svc.ClearDashboardRole(r.Context(), id, dashboardID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.logger.Info("dashboard role cleared", "client", auth.ShortID(id), "dashboard", dashboardID)
	writeJSON(w, http.StatusOK, rec)
}

// handleSetNickname renames a client. Clients may rename themselves.
func (s *Server) handleSetNickname(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	p := principalFrom(r.Context())
	if p.ClientID != id && !p.Can(auth.CapManageUsers, "") {
		writeForbidden(w, "insufficient role for "+string(auth.CapManageUsers))
		return
	}
	var req nicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	rec, err := s.svc.SetNickname(r.Context(), id, req.Nickname)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleApprove grants a pending access request.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.ApproveAccess(r.Context(), urlParam(r, "id"), urlParam(r, "dashboardID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeny drops a pending access request.
func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.DenyAccess(r.Context(), urlParam(r, "id"), urlParam(r, "dashboardID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteClient forgets a client.
func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := s.svc.DeleteClient(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	s.logger.Info("client deleted", "client", auth.ShortID(id))
	w.WriteHeader(http.StatusNoContent)
}
