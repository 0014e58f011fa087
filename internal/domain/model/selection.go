package model

import (
	"fmt"
	"time"
)

// Selection is a pending, not yet confirmed, venue/block choice for a member.
type Selection struct {
	MemberID int64  `json:"member_id"`
	VenueID  int64  `json:"venue_id"`
	BlockID  *int64 `json:"block_id,omitempty"`
}

// Clone returns a copy that shares no pointers with s.
func (s Selection) Clone() Selection {
	out := s
	if s.BlockID != nil {
		id := *s.BlockID
		out.BlockID = &id
	}
	return out
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Candidate is a venue, optionally narrowed to one of its blocks, offered to a member.
type Candidate struct {
	Venue Venue
	Block *Block
}

// String renders the candidate for log lines.
func (c Candidate) String() string {
	if c.Block == nil {
		return fmt.Sprintf("venue %d", c.Venue.ID)
	}
	return fmt.Sprintf("venue %d block %d", c.Venue.ID, c.Block.ID)
}

// MessageKind classifies a per-member feedback message.
type MessageKind string

// Message kinds.
const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Message is short-lived UI feedback for one member.
type Message struct {
	Kind MessageKind `json:"type"`
	Text string      `json:"message"`
	At   time.Time   `json:"timestamp"`
}
