package smoke

import (
	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/internal/domain/types"
)

// planSelections picks the first selectable candidate for every member
// that is not locked or busy. Locked members are counted in stats.
func planSelections(members []types.Member, stats *Stats) []model.Selection {
	plan := make([]model.Selection, 0, len(members))
	for _, m := range members {
		if m.Preference != nil && m.Preference.Locked {
			stats.Locked++
			continue
		}
		if m.Busy || len(m.Selectable) == 0 {
			continue
		}
		c := m.Selectable[0]
		sel := model.Selection{MemberID: m.ID, VenueID: c.VenueID}
		if c.BlockID != nil {
			sel.BlockID = model.Int64(*c.BlockID)
		}
		plan = append(plan, sel)
	}
	stats.Planned = len(plan)
	return plan
}
