package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is an authorisation tier. The numeric order is the privilege order.
type Role int

const (
	// RoleViewer can watch state but not change it.
	RoleViewer Role = iota

	// RoleController can operate looks, faders and blackout.
	RoleController

	// RoleModerator can also approve access requests and manage roles on
	// the dashboards where they hold it.
	RoleModerator

	// RoleEditor has full control including show settings.
	RoleEditor
)

var roleNames = [...]string{"viewer", "controller", "moderator", "editor"}

// String returns the wire name of the role.
func (r Role) String() string {
	if r < RoleViewer || r > RoleEditor {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// Valid reports whether r is one of the four defined roles.
func (r Role) Valid() bool {
	return r >= RoleViewer && r <= RoleEditor
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// ParseRole converts a wire name to a Role.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return RoleViewer, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// MarshalText encodes the role by name so it can be a JSON value or map key.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ClientRecord is the persisted part of a client: everything that survives a
// disconnect. It is stored in the show document roster keyed by client id.
type ClientRecord struct {
	Role              Role            `json:"role"`
	DashboardRoles    map[string]Role `json:"dashboardRoles,omitempty"`
	Nickname          string          `json:"nickname,omitempty"`
	PendingAccess     bool            `json:"pendingAccess,omitempty"`
	PendingDashboards []string        `json:"pendingDashboards,omitempty"`
	FirstSeen         time.Time       `json:"firstSeen"`
	LastSeen          time.Time       `json:"lastSeen"`
}

// Clone returns a deep copy.
func (c ClientRecord) Clone() ClientRecord {
	out := c
	if c.DashboardRoles != nil {
		out.DashboardRoles = make(map[string]Role, len(c.DashboardRoles))
		for k, v := range c.DashboardRoles {
			out.DashboardRoles[k] = v
		}
	}
	if c.PendingDashboards != nil {
		out.PendingDashboards = append([]string(nil), c.PendingDashboards...)
	}
	return out
}

// HasPendingDashboard reports whether an access request for dashboardID is
// waiting for approval.
func (c ClientRecord) HasPendingDashboard(dashboardID string) bool {
	for _, id := range c.PendingDashboards {
		if id == dashboardID {
			return true
		}
	}
	return false
}
