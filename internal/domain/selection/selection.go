// Package selection holds pending, not yet submitted, venue choices keyed by member.
package selection

import (
	"sort"
	"sync"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/metrics"
)

// Store keeps one independent pending selection per member.
// Callers gate writes with the constraint evaluator; the store itself has no rules.
type Store struct {
	mu      sync.RWMutex
	pending map[int64]model.Selection
}

// New returns an empty Store.
func New() *Store {
	return &Store{pending: make(map[int64]model.Selection)}
}

// Set records venueID and the optional blockID as memberID's pending selection,
// replacing any previous one.
func (s *Store) Set(memberID, venueID int64, blockID *int64) {
	sel := model.Selection{MemberID: memberID, VenueID: venueID, BlockID: blockID}.Clone()

	s.mu.Lock()
	_, existed := s.pending[memberID]
	s.pending[memberID] = sel
	s.mu.Unlock()

	if !existed {
		metrics.AddSelectionsPending(1)
	}
}

// Get returns memberID's pending selection.
func (s *Store) Get(memberID int64) (model.Selection, bool) {
	s.mu.RLock()
	sel, ok := s.pending[memberID]
	s.mu.RUnlock()
	if !ok {
		return model.Selection{}, false
	}
	return sel.Clone(), true
}

// Clear drops memberID's pending selection, if any.
func (s *Store) Clear(memberID int64) {
	s.mu.Lock()
	_, existed := s.pending[memberID]
	delete(s.pending, memberID)
	s.mu.Unlock()

	if existed {
		metrics.AddSelectionsPending(-1)
	}
}

// ClearIf drops memberID's pending selection only while it still equals sel.
// A selection changed after a submission started survives that submission.
func (s *Store) ClearIf(sel model.Selection) bool {
	s.mu.Lock()
	cur, ok := s.pending[sel.MemberID]
	match := ok && equal(cur, sel)
	if match {
		delete(s.pending, sel.MemberID)
	}
	s.mu.Unlock()

	if match {
		metrics.AddSelectionsPending(-1)
	}
	return match
}

// All returns a copy of every pending selection ordered by member id.
func (s *Store) All() []model.Selection {
	s.mu.RLock()
	out := make([]model.Selection, 0, len(s.pending))
	for _, sel := range s.pending {
		out = append(out, sel.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// Len returns the number of pending selections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Reset drops every pending selection.
func (s *Store) Reset() {
	s.mu.Lock()
	n := len(s.pending)
	s.pending = make(map[int64]model.Selection)
	s.mu.Unlock()

	if n > 0 {
		metrics.AddSelectionsPending(-n)
	}
}

func equal(a, b model.Selection) bool {
	if a.MemberID != b.MemberID || a.VenueID != b.VenueID {
		return false
	}
	if a.BlockID == nil || b.BlockID == nil {
		return a.BlockID == nil && b.BlockID == nil
	}
	return *a.BlockID == *b.BlockID
}
