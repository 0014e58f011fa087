package tracker

import "time"

// DefaultMessageTTL is how long a feedback message stays visible.
const DefaultMessageTTL = 5 * time.Second

// Option configures a Tracker.
type Option func(*Tracker)

// WithMessageTTL sets how long messages live before they expire.
func WithMessageTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}
