package console

import (
	"context"
	"fmt"

	"github.com/nerrad567/lumen-core/internal/auth"
)

// Authenticate records a connection from clientID and returns its record.
// A non-empty nickname replaces the stored one. New clients and nickname
// changes are persisted.
func (s *Service) Authenticate(ctx context.Context, clientID, nickname string) (auth.ClientRecord, error) {
	rec, created, err := s.roster.Touch(clientID)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	changed := created
	if nickname != "" && nickname != rec.Nickname {
		if rec, err = s.roster.SetNickname(clientID, nickname); err != nil {
			return auth.ClientRecord{}, err
		}
		changed = true
	}
	if changed {
		if err := s.persistRoster(ctx); err != nil {
			return auth.ClientRecord{}, err
		}
		s.notify().RosterChanged()
	}
	return rec, nil
}

// Client returns a client's record.
func (s *Service) Client(clientID string) (auth.ClientRecord, bool) {
	return s.roster.Get(clientID)
}

// Clients returns every client record.
func (s *Service) Clients() map[string]auth.ClientRecord {
	return s.roster.Records()
}

// Principal resolves the identity a request or connection acts as. Unknown
// clients get an empty record carrying the default role.
func (s *Service) Principal(clientID string, isLocalhost bool) auth.Principal {
	rec, ok := s.roster.Get(clientID)
	if !ok {
		rec = auth.ClientRecord{Role: s.Access().DefaultRole}
	}
	return auth.Principal{ClientID: clientID, Record: rec, IsLocalhost: isLocalhost}
}

// SetRole sets a client's global role.
func (s *Service) SetRole(ctx context.Context, clientID string, role auth.Role) (auth.ClientRecord, error) {
	if !role.Valid() {
		return auth.ClientRecord{}, auth.ErrInvalidRole
	}
	rec, err := s.roster.SetRole(clientID, role)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	if err := s.persistRoster(ctx); err != nil {
		return auth.ClientRecord{}, err
	}
	n := s.notify()
	n.RoleChanged(clientID, rec.Role)
	n.RosterChanged()
	return rec, nil
}

// SetDashboardRole sets a client's role on one dashboard. Making a client
// editor anywhere makes it a global editor too.
func (s *Service) SetDashboardRole(ctx context.Context, clientID, dashboardID string, role auth.Role) (auth.ClientRecord, error) {
	if !role.Valid() {
		return auth.ClientRecord{}, auth.ErrInvalidRole
	}
	if err := s.checkDashboard(dashboardID); err != nil {
		return auth.ClientRecord{}, err
	}
	before, _ := s.roster.Get(clientID)
	rec, err := s.roster.SetDashboardRole(clientID, dashboardID, role)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	if err := s.persistRoster(ctx); err != nil {
		return auth.ClientRecord{}, err
	}
	n := s.notify()
	n.DashboardRoleChanged(clientID, dashboardID, role)
	if rec.Role != before.Role {
		n.RoleChanged(clientID, rec.Role)
	}
	n.RosterChanged()
	return rec, nil
}

// ClearDashboardRole drops a per-dashboard role so the client's global role
// applies on that dashboard again. The client is told its effective role.
func (s *Service) ClearDashboardRole(ctx context.Context, clientID, dashboardID string) (auth.ClientRecord, error) {
	if err := s.checkDashboard(dashboardID); err != nil {
		return auth.ClientRecord{}, err
	}
	rec, err := s.roster.ClearDashboardRole(clientID, dashboardID)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	if err := s.persistRoster(ctx); err != nil {
		return auth.ClientRecord{}, err
	}
	n := s.notify()
	n.DashboardRoleChanged(clientID, dashboardID, rec.Role)
	n.RosterChanged()
	return rec, nil
}

// SetNickname renames a client.
func (s *Service) SetNickname(ctx context.Context, clientID, nickname string) (auth.ClientRecord, error) {
	rec, err := s.roster.SetNickname(clientID, nickname)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	if err := s.persistRoster(ctx); err != nil {
		return auth.ClientRecord{}, err
	}
	s.notify().RosterChanged()
	return rec, nil
}

// RequestAccess records a pending access request, global when dashboardID
// is empty.
func (s *Service) RequestAccess(ctx context.Context, clientID, dashboardID string) (auth.ClientRecord, error) {
	if dashboardID != "" {
		if err := s.checkDashboard(dashboardID); err != nil {
			return auth.ClientRecord{}, err
		}
	}
	rec, err := s.roster.RequestAccess(clientID, dashboardID)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	if err := s.persistRoster(ctx); err != nil {
		return auth.ClientRecord{}, err
	}
	s.notify().RosterChanged()
	return rec, nil
}

// ApproveAccess grants a pending request.
func (s *Service) ApproveAccess(ctx context.Context, clientID, dashboardID string) (auth.ClientRecord, error) {
	rec, err := s.roster.ApproveAccess(clientID, dashboardID)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	if err := s.persistRoster(ctx); err != nil {
		return auth.ClientRecord{}, err
	}
	n := s.notify()
	if dashboardID == "" {
		n.RoleChanged(clientID, rec.Role)
	} else {
		n.DashboardRoleChanged(clientID, dashboardID, rec.DashboardRoles[dashboardID])
	}
	n.RosterChanged()
	return rec, nil
}

// DenyAccess drops a pending request.
func (s *Service) DenyAccess(ctx context.Context, clientID, dashboardID string) (auth.ClientRecord, error) {
	rec, err := s.roster.DenyAccess(clientID, dashboardID)
	if err != nil {
		return auth.ClientRecord{}, err
	}
	if err := s.persistRoster(ctx); err != nil {
		return auth.ClientRecord{}, err
	}
	n := s.notify()
	n.AccessDenied(clientID, dashboardID)
	n.RosterChanged()
	return rec, nil
}

// DeleteClient forgets a client. It gets the default role if it connects
// again.
func (s *Service) DeleteClient(ctx context.Context, clientID string) error {
	if err := s.roster.Delete(clientID); err != nil {
		return err
	}
	if err := s.persistRoster(ctx); err != nil {
		return err
	}
	n := s.notify()
	n.RoleChanged(clientID, s.Access().DefaultRole)
	n.RosterChanged()
	return nil
}

func (s *Service) checkDashboard(dashboardID string) error {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	if _, ok := s.doc.Dashboard(dashboardID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDashboard, dashboardID)
	}
	return nil
}

// persistRoster saves the document with the current roster.
func (s *Service) persistRoster(ctx context.Context) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	next := s.doc.Clone()
	next.Clients = s.roster.Records()
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("saving roster: %w", err)
	}
	s.doc = next
	return nil
}
