// Package constraint decides whether a member may select a venue or block.
package constraint

import (
	"errors"
	"fmt"

	"github.com/dakheliyah/vms/internal/domain/model"
)

// Evaluator applies lock, capacity and gender rules to selection candidates.
// It holds no state and is safe for concurrent use.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// IsSelectable reports whether member may select candidate.
func (e *Evaluator) IsSelectable(member model.Member, candidate model.Candidate) bool {
	return e.Check(member, candidate) == nil
}

// Check returns why member may not select candidate, or nil.
//
// A candidate naming both a venue and a block must pass both the venue and
// the block rules; the first failure is returned.
func (e *Evaluator) Check(member model.Member, candidate model.Candidate) error {
	if member.Locked() {
		return ErrLocked
	}

	v := candidate.Venue
	if v.AvailabilityFor(member.Gender) <= 0 {
		return fmt.Errorf("%w: venue %d", ErrNoCapacity, v.ID)
	}

	b := candidate.Block
	if b == nil {
		return nil
	}
	if b.VenueID != 0 && b.VenueID != v.ID {
		return fmt.Errorf("%w: block %d, venue %d", ErrForeignBlock, b.ID, v.ID)
	}
	if !b.Admits(member.Gender) {
		return fmt.Errorf("%w: block %d is %s", ErrGenderMismatch, b.ID, b.Gender)
	}
	if b.Availability <= 0 {
		return fmt.Errorf("%w: block %d", ErrNoCapacity, b.ID)
	}
	return nil
}

// Selectable lists every venue, and every block within it, that member may
// select. A venue with blocks is listed only through its admissible blocks.
func (e *Evaluator) Selectable(member model.Member, venues []model.Venue) []model.Candidate {
	var out []model.Candidate
	for _, v := range venues {
		if len(v.Blocks) == 0 {
			c := model.Candidate{Venue: v}
			if e.IsSelectable(member, c) {
				out = append(out, c)
			}
			continue
		}
		for i := range v.Blocks {
			b := v.Blocks[i]
			c := model.Candidate{Venue: v, Block: &b}
			if e.IsSelectable(member, c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Reason maps a Check error to a short label for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrNoCapacity):
		return "no_capacity"
	case errors.Is(err, ErrGenderMismatch):
		return "gender_mismatch"
	case errors.Is(err, ErrForeignBlock):
		return "foreign_block"
	default:
		return "other"
	}
}
