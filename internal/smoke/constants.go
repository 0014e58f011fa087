package smoke

import "time"

// Request header carrying the session token.
const tokenHeader = "Token"

// Polling constants used while members settle.
const (
	statusPollInterval = 200 * time.Millisecond
	percentMultiplier  = 100
)
