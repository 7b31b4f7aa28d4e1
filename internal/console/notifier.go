package console

import "github.com/nerrad567/lumen-core/internal/auth"

// RoleNotifier is told about roster changes so live sessions can react.
// The WebSocket hub implements it.
type RoleNotifier interface {
	// RoleChanged is called after a client's global role changed.
	RoleChanged(clientID string, role auth.Role)

	// DashboardRoleChanged is called after a client's role on one
	// dashboard changed.
	DashboardRoleChanged(clientID, dashboardID string, role auth.Role)

	// AccessDenied is called after a pending request was denied.
	AccessDenied(clientID, dashboardID string)

	// RosterChanged is called after any roster change, including the ones
	// above.
	RosterChanged()
}

type noopNotifier struct{}

func (noopNotifier) RoleChanged(string, auth.Role)                  {}
func (noopNotifier) DashboardRoleChanged(string, string, auth.Role) {}
func (noopNotifier) AccessDenied(string, string)                    {}
func (noopNotifier) RosterChanged()                                 {}
