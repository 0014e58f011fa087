package model

import "time"

// RowResult is the backend's verdict on one row of a batched write.
type RowResult struct {
	MemberID int64
	OK       bool
	Message  string
}

// Outcome records one member's submission result for downstream consumers.
type Outcome struct {
	ID       string    `json:"id"`
	EventID  int64     `json:"event_id"`
	MemberID int64     `json:"member_id"`
	VenueID  int64     `json:"venue_id"`
	BlockID  *int64    `json:"block_id,omitempty"`
	Verb     Verb      `json:"verb,omitempty"`
	OK       bool      `json:"ok"`
	Kind     ErrorKind `json:"error_kind,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}
