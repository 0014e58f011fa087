package service

import (
	"context"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
)

// Admin is the operator side of the preference backend.
type Admin interface {
	SetLocks(ctx context.Context, cred model.Credential, req model.LockRequest) error
	AdminAssign(ctx context.Context, cred model.Credential, req model.AssignRequest) error
}

// SetLocks locks or unlocks the preferences of req.MemberIDs. Open sessions
// reload their rosters on next use.
func (s *Service) SetLocks(ctx context.Context, cred model.Credential, req model.LockRequest) error {
	if err := s.adminReady(cred); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.admin.SetLocks(ctx, cred, req); err != nil {
		return err
	}
	s.markStale(0)
	return nil
}

// AdminAssign places req.MemberIDs at req.VenueID on the operator's
// authority. The event's cached capacity and open sessions are refreshed on
// next use.
func (s *Service) AdminAssign(ctx context.Context, cred model.Credential, req model.AssignRequest) error {
	if err := s.adminReady(cred); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.admin.AdminAssign(ctx, cred, req); err != nil {
		return err
	}
	if err := s.capacity.Invalidate(ctx, req.EventID); err != nil {
		s.logger.Warn(ctx, "capacity cache invalidation failed",
			logger.Int64("event_id", req.EventID),
			logger.Error(err))
	}
	s.markStale(req.EventID)
	return nil
}

func (s *Service) adminReady(cred model.Credential) error {
	if s.admin == nil {
		return ErrAdminUnavailable
	}
	if cred.Empty() {
		return ErrNoCredential
	}
	return nil
}

// markStale drops the snapshots of every open session of eventID, or of all
// sessions when eventID is 0.
func (s *Service) markStale(eventID int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, sess := range s.sessions {
		if eventID == 0 || key.eventID == eventID {
			sess.invalidate()
		}
	}
}
