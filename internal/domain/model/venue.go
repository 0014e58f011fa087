package model

// BlockGender is the gender eligibility of a block.
type BlockGender string

// Block eligibilities.
const (
	BlockMale    BlockGender = "male"
	BlockFemale  BlockGender = "female"
	BlockBoth    BlockGender = "both"
	// BlockUnknown is a block whose eligibility could not be read. It admits
	// nobody.
	BlockUnknown BlockGender = "unknown"
)

// Venue ("vaaz center") with its capacity summary. Availability fields are
// derived by the backend and must be treated as read-only.
type Venue struct {
	ID           int64
	Name         string
	Capacity     int
	Issued       int
	Availability int

	MaleCapacity     int
	MaleIssued       int
	MaleAvailability int

	FemaleCapacity     int
	FemaleIssued       int
	FemaleAvailability int

	Blocks []Block
}

// Segmented reports whether the backend supplied gender-specific capacity.
func (v Venue) Segmented() bool {
	return v.MaleCapacity > 0 || v.FemaleCapacity > 0 ||
		v.MaleAvailability > 0 || v.FemaleAvailability > 0
}

// AvailabilityFor returns the availability relevant to gender: the gender
// column on segmented venues, the total otherwise.
func (v Venue) AvailabilityFor(g Gender) int {
	if !v.Segmented() {
		return v.Availability
	}
	switch g {
	case GenderMale:
		return v.MaleAvailability
	case GenderFemale:
		return v.FemaleAvailability
	default:
		return v.Availability
	}
}

// Block returns the venue's block with id.
func (v Venue) Block(id int64) (Block, bool) {
	for _, b := range v.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// Block is a typed, gender-restricted sub-capacity within a venue.
type Block struct {
	ID           int64
	VenueID      int64
	Type         string
	Gender       BlockGender
	Capacity     int
	Issued       int
	Availability int
}

// Admits reports whether a member of gender g may take this block.
func (b Block) Admits(g Gender) bool {
	if b.Gender == BlockBoth {
		return true
	}
	return g != GenderUnspecified && string(b.Gender) == string(g)
}

// Clone returns a copy of v that shares no block slice with it.
func (v Venue) Clone() Venue {
	if v.Blocks != nil {
		v.Blocks = append([]Block(nil), v.Blocks...)
	}
	return v
}

// CloneVenues deep-copies venues so callers can never alias a snapshot.
func CloneVenues(in []Venue) []Venue {
	if in == nil {
		return nil
	}
	out := make([]Venue, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}
