package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dakheliyah/vms/internal/domain/model"
)

// flexInt accepts a JSON number, a quoted number or null.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %q: %w", s, err)
		}
		*f = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		i = int64(fl)
	}
	*f = flexInt(i)
	return nil
}

// unwrapData returns the array inside {"data": [...]} or b itself when it is
// already an array.
func unwrapData(b []byte) ([]byte, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []byte("[]"), nil
	}
	if b[0] == '[' {
		return b, nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil, fmt.Errorf("response has no data")
	}
	return env.Data, nil
}

type venueDTO struct {
	ID           flexInt    `json:"id"`
	Name         string     `json:"name"`
	Capacity     flexInt    `json:"est_capacity"`
	Issued       flexInt    `json:"issued"`
	Availability flexInt    `json:"availability"`
	MaleCap      flexInt    `json:"male_capacity"`
	MaleIssued   flexInt    `json:"male_issued"`
	MaleAvail    flexInt    `json:"male_availability"`
	FemaleCap    flexInt    `json:"female_capacity"`
	FemaleIssued flexInt    `json:"female_issued"`
	FemaleAvail  flexInt    `json:"female_availability"`
	Blocks       []blockDTO `json:"blocks"`
}

type blockDTO struct {
	ID           flexInt `json:"id"`
	VenueID      flexInt `json:"vaaz_center_id"`
	Type         string  `json:"type"`
	Gender       string  `json:"gender"`
	Capacity     flexInt `json:"capacity"`
	Issued       flexInt `json:"issued"`
	Availability flexInt `json:"availability"`
}

func (d venueDTO) toModel() model.Venue {
	v := model.Venue{
		ID:                 int64(d.ID),
		Name:               d.Name,
		Capacity:           int(d.Capacity),
		Issued:             int(d.Issued),
		Availability:       int(d.Availability),
		MaleCapacity:       int(d.MaleCap),
		MaleIssued:         int(d.MaleIssued),
		MaleAvailability:   int(d.MaleAvail),
		FemaleCapacity:     int(d.FemaleCap),
		FemaleIssued:       int(d.FemaleIssued),
		FemaleAvailability: int(d.FemaleAvail),
	}
	for _, b := range d.Blocks {
		venueID := int64(b.VenueID)
		if venueID == 0 {
			venueID = v.ID
		}
		v.Blocks = append(v.Blocks, model.Block{
			ID:           int64(b.ID),
			VenueID:      venueID,
			Type:         b.Type,
			Gender:       blockGender(b.Gender),
			Capacity:     int(b.Capacity),
			Issued:       int(b.Issued),
			Availability: int(b.Availability),
		})
	}
	return v
}

func blockGender(s string) model.BlockGender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return model.BlockMale
	case "female", "f":
		return model.BlockFemale
	case "both":
		return model.BlockBoth
	default:
		return model.BlockUnknown
	}
}

type memberDTO struct {
	ITSID           flexInt         `json:"its_id"`
	FullName        string          `json:"fullname"`
	Gender          string          `json:"gender"`
	PassPreferences []preferenceDTO `json:"pass_preferences"`
}

type preferenceDTO struct {
	ID             flexInt  `json:"id"`
	EventID        flexInt  `json:"event_id"`
	VaazCenterID   flexInt  `json:"vaaz_center_id"`
	BlockID        *flexInt `json:"block_id"`
	PassType       string   `json:"pass_type"`
	VaazCenterName string   `json:"vaaz_center_name"`
	IsLocked       bool     `json:"is_locked"`
}

func (d memberDTO) toModel(eventID int64) model.Member {
	m := model.Member{
		ID:     int64(d.ITSID),
		Name:   d.FullName,
		Gender: model.ParseGender(d.Gender),
	}
	for _, p := range d.PassPreferences {
		if p.EventID != 0 && int64(p.EventID) != eventID {
			continue
		}
		pref := &model.Preference{
			ID:        int64(p.ID),
			MemberID:  m.ID,
			EventID:   eventID,
			VenueID:   int64(p.VaazCenterID),
			VenueName: p.VaazCenterName,
			PassType:  p.PassType,
			Locked:    p.IsLocked,
		}
		if p.BlockID != nil && *p.BlockID != 0 {
			pref.BlockID = model.Int64(int64(*p.BlockID))
		}
		m.Preference = pref
		break
	}
	return m
}

type eventDTO struct {
	ID     flexInt `json:"id"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
}

// preferenceRow is one element of a create or update body.
type preferenceRow struct {
	ITSID        int64  `json:"its_id"`
	VaazCenterID int64  `json:"vaaz_center_id"`
	BlockID      *int64 `json:"block_id,omitempty"`
	EventID      int64  `json:"event_id"`
}

func rowsFor(eventID int64, batch []model.Selection) []preferenceRow {
	rows := make([]preferenceRow, len(batch))
	for i, s := range batch {
		rows[i] = preferenceRow{
			ITSID:        s.MemberID,
			VaazCenterID: s.VenueID,
			BlockID:      s.Clone().BlockID,
			EventID:      eventID,
		}
	}
	return rows
}

// writeResponse is the optional per-row answer to a create or update.
type writeResponse struct {
	Message string `json:"message"`
	Results []struct {
		ITSID   flexInt `json:"its_id"`
		Success bool    `json:"success"`
		Message string  `json:"message"`
	} `json:"results"`
}

// errorBody is the error envelope the backend sends with non-2xx responses.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
