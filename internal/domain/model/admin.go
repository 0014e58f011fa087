package model

import (
	"fmt"
	"strings"
)

// LockRequest locks or unlocks the preferences of many members at once.
type LockRequest struct {
	MemberIDs []int64 `json:"member_ids"`
	Locked    bool    `json:"locked"`
	Reason    string  `json:"reason"`
}

// Validate checks that the request names members and a reason.
func (r LockRequest) Validate() error {
	if err := validIDs(r.MemberIDs); err != nil {
		return err
	}
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	return nil
}

// AssignRequest places many members of one gender at a venue, bypassing
// the member-facing selection rules.
type AssignRequest struct {
	EventID   int64   `json:"event_id"`
	VenueID   int64   `json:"venue_id"`
	MemberIDs []int64 `json:"member_ids"`
	Gender    Gender  `json:"gender"`
	Reason    string  `json:"reason"`
}

// Validate checks that the request is complete.
func (r AssignRequest) Validate() error {
	if r.EventID <= 0 {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if r.VenueID <= 0 {
		return fmt.Errorf("%w: venue id is required", ErrValidation)
	}
	if err := validIDs(r.MemberIDs); err != nil {
		return err
	}
	if r.Gender != GenderMale && r.Gender != GenderFemale {
		return fmt.Errorf("%w: gender must be male or female", ErrValidation)
	}
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	return nil
}

func validIDs(ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one member id is required", ErrValidation)
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: invalid member id %d", ErrValidation, id)
		}
	}
	return nil
}
