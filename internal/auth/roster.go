package auth

import (
	"strings"
	"sync"
	"time"
	"unicode"
)

// shortIDLength is the number of characters shown to operators.
const shortIDLength = 6

// Roster holds every client that has ever authenticated, keyed by client id.
//
// The roster is part of the show document; the owner persists Records()
// after each mutating call. All methods are safe for concurrent use and
// return copies.
type Roster struct {
	mu          sync.RWMutex
	clients     map[string]ClientRecord
	defaultRole Role
	now         func() time.Time
}

// NewRoster creates a roster seeded with records. New clients receive
// defaultRole.
func NewRoster(records map[string]ClientRecord, defaultRole Role) *Roster {
	r := &Roster{
		clients:     make(map[string]ClientRecord, len(records)),
		defaultRole: defaultRole,
		now:         time.Now,
	}
	for id, rec := range records {
		r.clients[id] = rec.Clone()
	}
	return r
}

// Replace swaps the whole roster, used when a new show document is loaded.
func (r *Roster) Replace(records map[string]ClientRecord, defaultRole Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[string]ClientRecord, len(records))
	for id, rec := range records {
		r.clients[id] = rec.Clone()
	}
	r.defaultRole = defaultRole
}

// Touch records a connection from clientID, creating the record with the
// default role on first sight. created reports whether the record is new.
func (r *Roster) Touch(clientID string) (rec ClientRecord, created bool, err error) {
	if clientID == "" {
		return ClientRecord{}, false, ErrEmptyClientID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	rec, ok := r.clients[clientID]
	if !ok {
		rec = ClientRecord{Role: r.defaultRole, FirstSeen: now}
		created = true
	}
	rec.LastSeen = now
	r.clients[clientID] = rec
	return rec.Clone(), created, nil
}

// Get returns the record for clientID.
func (r *Roster) Get(clientID string) (ClientRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.clients[clientID]
	if !ok {
		return ClientRecord{}, false
	}
	return rec.Clone(), true
}

// Records returns a deep copy of every record.
func (r *Roster) Records() map[string]ClientRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ClientRecord, len(r.clients))
	for id, rec := range r.clients {
		out[id] = rec.Clone()
	}
	return out
}

// SetRole sets the global role and clears a pending global request.
func (r *Roster) SetRole(clientID string, role Role) (ClientRecord, error) {
	if !role.Valid() {
		return ClientRecord{}, ErrInvalidRole
	}
	return r.update(clientID, func(rec *ClientRecord) error {
		rec.Role = role
		rec.PendingAccess = false
		return nil
	})
}

// SetDashboardRole records a per-dashboard role and clears a pending request
// for that dashboard. Editor on a dashboard also makes the client a global
// editor.
func (r *Roster) SetDashboardRole(clientID, dashboardID string, role Role) (ClientRecord, error) {
	if !role.Valid() {
		return ClientRecord{}, ErrInvalidRole
	}
	return r.update(clientID, func(rec *ClientRecord) error {
		if rec.DashboardRoles == nil {
			rec.DashboardRoles = make(map[string]Role)
		}
		rec.DashboardRoles[dashboardID] = role
		rec.PendingDashboards = removeString(rec.PendingDashboards, dashboardID)
		if role == RoleEditor {
			rec.Role = RoleEditor
		}
		return nil
	})
}

// ClearDashboardRole removes a per-dashboard role so the global role applies.
func (r *Roster) ClearDashboardRole(clientID, dashboardID string) (ClientRecord, error) {
	return r.update(clientID, func(rec *ClientRecord) error {
		delete(rec.DashboardRoles, dashboardID)
		if len(rec.DashboardRoles) == 0 {
			rec.DashboardRoles = nil
		}
		return nil
	})
}

// SetNickname sets the operator-facing label of a client.
func (r *Roster) SetNickname(clientID, nickname string) (ClientRecord, error) {
	return r.update(clientID, func(rec *ClientRecord) error {
		rec.Nickname = strings.TrimSpace(nickname)
		return nil
	})
}

// RequestAccess marks a pending request, global when dashboardID is empty.
func (r *Roster) RequestAccess(clientID, dashboardID string) (ClientRecord, error) {
	return r.update(clientID, func(rec *ClientRecord) error {
		if dashboardID == "" {
			rec.PendingAccess = true
			return nil
		}
		if !rec.HasPendingDashboard(dashboardID) {
			rec.PendingDashboards = append(rec.PendingDashboards, dashboardID)
		}
		return nil
	})
}

// ApproveAccess grants controller (or keeps a higher role) for a pending
// request, global when dashboardID is empty.
func (r *Roster) ApproveAccess(clientID, dashboardID string) (ClientRecord, error) {
	return r.update(clientID, func(rec *ClientRecord) error {
		if dashboardID == "" {
			if !rec.PendingAccess {
				return ErrNoPendingRequest
			}
			rec.PendingAccess = false
			if !rec.Role.AtLeast(RoleController) {
				rec.Role = RoleController
			}
			return nil
		}
		if !rec.HasPendingDashboard(dashboardID) {
			return ErrNoPendingRequest
		}
		rec.PendingDashboards = removeString(rec.PendingDashboards, dashboardID)
		if rec.DashboardRoles == nil {
			rec.DashboardRoles = make(map[string]Role)
		}
		if current, ok := rec.DashboardRoles[dashboardID]; !ok || !current.AtLeast(RoleController) {
			rec.DashboardRoles[dashboardID] = RoleController
		}
		return nil
	})
}

// DenyAccess drops a pending request without changing roles.
func (r *Roster) DenyAccess(clientID, dashboardID string) (ClientRecord, error) {
	return r.update(clientID, func(rec *ClientRecord) error {
		if dashboardID == "" {
			if !rec.PendingAccess {
				return ErrNoPendingRequest
			}
			rec.PendingAccess = false
			return nil
		}
		if !rec.HasPendingDashboard(dashboardID) {
			return ErrNoPendingRequest
		}
		rec.PendingDashboards = removeString(rec.PendingDashboards, dashboardID)
		return nil
	})
}

// Delete removes a client.
func (r *Roster) Delete(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[clientID]; !ok {
		return ErrClientNotFound
	}
	delete(r.clients, clientID)
	return nil
}

func (r *Roster) update(clientID string, fn func(*ClientRecord) error) (ClientRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.clients[clientID]
	if !ok {
		return ClientRecord{}, ErrClientNotFound
	}
	rec = rec.Clone()
	if err := fn(&rec); err != nil {
		return ClientRecord{}, err
	}
	r.clients[clientID] = rec
	return rec.Clone(), nil
}

// ShortID derives the short display id shown next to a client: the first
// six letters or digits of the id, upper-cased.
func ShortID(clientID string) string {
	var b strings.Builder
	n := 0
	for _, c := range clientID {
		if n == shortIDLength {
			break
		}
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(unicode.ToUpper(c))
			n++
		}
	}
	return b.String()
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
