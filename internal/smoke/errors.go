package smoke

import "errors"

// Smoke run errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrNoActiveEvent    = errors.New("no active event")
	ErrNothingPlanned   = errors.New("no member can be assigned")
	ErrStillBusy        = errors.New("members still busy")
)
