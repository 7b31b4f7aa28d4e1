package auth

import (
	"net"
	"strings"
)

// Capability is a named action gated by role.
type Capability string

// Capability constants. Wire names match the client protocol.
const (
	// CapEdit covers every state mutation (looks, faders, overrides, blackout).
	CapEdit Capability = "edit"

	// CapManageUsers covers approving requests and changing roles. Scoped to
	// a dashboard when one is given, global otherwise.
	CapManageUsers Capability = "manageUsers"

	// CapSettings covers replacing or resetting the show document.
	CapSettings Capability = "settings"
)

// ResolveRole returns the effective role of a client on a dashboard.
// An empty dashboardID resolves the global role.
func ResolveRole(rec ClientRecord, dashboardID string, isLocalhost bool) Role {
	if isLocalhost {
		return RoleEditor
	}
	if dashboardID != "" {
		if r, ok := rec.DashboardRoles[dashboardID]; ok {
			return r
		}
	}
	return rec.Role
}

// IsEditorAnywhere reports whether the client is editor globally or on at
// least one dashboard. Either case grants editor-level settings access
// everywhere.
func IsEditorAnywhere(rec ClientRecord, isLocalhost bool) bool {
	if isLocalhost || rec.Role == RoleEditor {
		return true
	}
	for _, r := range rec.DashboardRoles {
		if r == RoleEditor {
			return true
		}
	}
	return false
}

// CanEdit reports whether role may mutate state.
func CanEdit(role Role) bool {
	return role.AtLeast(RoleController)
}

// CanManageDashboardUsers reports whether the client may administer other
// clients on dashboardID.
func CanManageDashboardUsers(rec ClientRecord, dashboardID string, isLocalhost bool) bool {
	if IsEditorAnywhere(rec, isLocalhost) {
		return true
	}
	return ResolveRole(rec, dashboardID, false).AtLeast(RoleModerator)
}

// CanManageGlobalUsers reports whether the client may administer the global
// roster. Requires global editor.
func CanManageGlobalUsers(rec ClientRecord, isLocalhost bool) bool {
	return isLocalhost || rec.Role == RoleEditor
}

// CanAccessSettings reports whether the client may change the show document.
func CanAccessSettings(rec ClientRecord, isLocalhost bool) bool {
	return IsEditorAnywhere(rec, isLocalhost)
}

// Principal is a client as seen by one request or connection.
type Principal struct {
	ClientID    string
	Record      ClientRecord
	IsLocalhost bool
}

// RoleOn resolves the principal's role on a dashboard.
func (p Principal) RoleOn(dashboardID string) Role {
	return ResolveRole(p.Record, dashboardID, p.IsLocalhost)
}

// Can checks a capability. dashboardID scopes edit and manageUsers; it is
// ignored for settings.
func (p Principal) Can(c Capability, dashboardID string) bool {
	switch c {
	case CapEdit:
		return CanEdit(p.RoleOn(dashboardID))
	case CapManageUsers:
		if dashboardID == "" {
			return CanManageGlobalUsers(p.Record, p.IsLocalhost)
		}
		return CanManageDashboardUsers(p.Record, dashboardID, p.IsLocalhost)
	case CapSettings:
		return CanAccessSettings(p.Record, p.IsLocalhost)
	default:
		return false
	}
}

// IsLoopback reports whether a remote address ("host:port" or bare host)
// belongs to the local loopback interface.
func IsLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
