// Package model contains domain models passed between layers.
package model

import "strings"

// Gender of a member. The zero value means unspecified.
type Gender string

// Known genders.
const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
)

// ParseGender normalises a backend gender string; anything unknown is unspecified.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	default:
		return GenderUnspecified
	}
}

// Member is a family member eligible for allocation within one event.
type Member struct {
	ID         int64
	Name       string
	Gender     Gender
	Preference *Preference // confirmed preference; nil when none is stored yet
}

// Locked reports whether the member's confirmed preference is frozen.
func (m Member) Locked() bool {
	return m.Preference != nil && m.Preference.Locked
}

// HasPreference reports whether the backend already stores a preference.
func (m Member) HasPreference() bool {
	return m.Preference != nil
}

// Preference is a member's recorded venue/block choice for an event.
type Preference struct {
	ID        int64
	MemberID  int64
	EventID   int64
	VenueID   int64
	BlockID   *int64
	VenueName string
	PassType  string
	Locked    bool
}

// Event is a backend event a roster and capacity summary belong to.
type Event struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Active reports whether the event is open for preferences.
func (e Event) Active() bool {
	return strings.EqualFold(e.Status, "active")
}
