// Package types contains the JSON views served by the HTTP API.
package types

import "github.com/dakheliyah/vms/internal/domain/model"

// Block is a venue block as shown to clients.
type Block struct {
	ID           int64  `json:"id"`
	VenueID      int64  `json:"vaaz_center_id"`
	Type         string `json:"type"`
	Gender       string `json:"gender"`
	Capacity     int    `json:"capacity"`
	Issued       int    `json:"issued"`
	Availability int    `json:"availability"`
}

// Venue is a capacity summary row.
type Venue struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Capacity           int     `json:"est_capacity"`
	Issued             int     `json:"issued"`
	Availability       int     `json:"availability"`
	MaleCapacity       int     `json:"male_capacity"`
	MaleIssued         int     `json:"male_issued"`
	MaleAvailability   int     `json:"male_availability"`
	FemaleCapacity     int     `json:"female_capacity"`
	FemaleIssued       int     `json:"female_issued"`
	FemaleAvailability int     `json:"female_availability"`
	Blocks             []Block `json:"blocks"`
}

// Preference is a member's confirmed preference.
type Preference struct {
	ID        int64  `json:"id"`
	VenueID   int64  `json:"vaaz_center_id"`
	VenueName string `json:"vaaz_center_name,omitempty"`
	BlockID   *int64 `json:"block_id,omitempty"`
	PassType  string `json:"pass_type,omitempty"`
	Locked    bool   `json:"is_locked"`
}

// Candidate is a venue, or one block of it, the member may pick.
type Candidate struct {
	VenueID   int64  `json:"vaaz_center_id"`
	VenueName string `json:"vaaz_center_name"`
	BlockID   *int64 `json:"block_id,omitempty"`
	BlockType string `json:"block_type,omitempty"`
}

// Member is one roster row with its coordinator state.
type Member struct {
	ID         int64            `json:"its_id"`
	Name       string           `json:"fullname"`
	Gender     string           `json:"gender"`
	Preference *Preference      `json:"preference,omitempty"`
	Pending    *model.Selection `json:"pending,omitempty"`
	Busy       bool             `json:"busy"`
	Message    *model.Message   `json:"message,omitempty"`
	Selectable []Candidate      `json:"selectable"`
}

// Status is the busy flag and feedback message of one member.
type Status struct {
	MemberID int64            `json:"its_id"`
	Busy     bool             `json:"busy"`
	Pending  *model.Selection `json:"pending,omitempty"`
	Message  *model.Message   `json:"message,omitempty"`
}

// FromVenue converts a domain venue.
func FromVenue(v model.Venue) Venue {
	out := Venue{
		ID:                 v.ID,
		Name:               v.Name,
		Capacity:           v.Capacity,
		Issued:             v.Issued,
		Availability:       v.Availability,
		MaleCapacity:       v.MaleCapacity,
		MaleIssued:         v.MaleIssued,
		MaleAvailability:   v.MaleAvailability,
		FemaleCapacity:     v.FemaleCapacity,
		FemaleIssued:       v.FemaleIssued,
		FemaleAvailability: v.FemaleAvailability,
		Blocks:             make([]Block, 0, len(v.Blocks)),
	}
	for _, b := range v.Blocks {
		out.Blocks = append(out.Blocks, Block{
			ID:           b.ID,
			VenueID:      b.VenueID,
			Type:         b.Type,
			Gender:       string(b.Gender),
			Capacity:     b.Capacity,
			Issued:       b.Issued,
			Availability: b.Availability,
		})
	}
	return out
}

// FromVenues converts a capacity snapshot.
func FromVenues(venues []model.Venue) []Venue {
	out := make([]Venue, 0, len(venues))
	for _, v := range venues {
		out = append(out, FromVenue(v))
	}
	return out
}

// FromMember converts a roster member. Coordinator fields are left for the
// caller to fill.
func FromMember(m model.Member) Member {
	out := Member{
		ID:         m.ID,
		Name:       m.Name,
		Gender:     string(m.Gender),
		Selectable: []Candidate{},
	}
	if p := m.Preference; p != nil {
		out.Preference = &Preference{
			ID:        p.ID,
			VenueID:   p.VenueID,
			VenueName: p.VenueName,
			BlockID:   p.BlockID,
			PassType:  p.PassType,
			Locked:    p.Locked,
		}
	}
	return out
}

// FromCandidates converts evaluator candidates.
func FromCandidates(cs []model.Candidate) []Candidate {
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		v := Candidate{VenueID: c.Venue.ID, VenueName: c.Venue.Name}
		if c.Block != nil {
			v.BlockID = model.Int64(c.Block.ID)
			v.BlockType = c.Block.Type
		}
		out = append(out, v)
	}
	return out
}
