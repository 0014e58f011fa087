package api

import "github.com/dakheliyah/vms/internal/domain/dedupe"

// Option configures the Server.
type Option func(*Server)

// WithDeduper enables Idempotency-Key handling on the submit and
// bulk-assign routes.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Server) {
		s.selectionsHandler.dedupe = d
	}
}

// WithAdmin registers the operator lock and assignment routes.
func WithAdmin(a AdminDependencies) Option {
	return func(s *Server) {
		if a != nil {
			s.adminHandler = NewAdminHandler(a)
		}
	}
}
