package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
)

// Admin paths.
const (
	pathLocks       = "/pass-preferences/lock-preferences"
	pathAdminAssign = "/pass-preferences/bulk-assign-vaaz-center"
)

// lockBody is the body of a bulk lock or unlock. The backend takes ITS ids
// as strings here.
type lockBody struct {
	ITSIDs   []string `json:"its_ids"`
	IsLocked bool     `json:"is_locked"`
	Reason   string   `json:"reason"`
}

type assignBody struct {
	EventID      int64    `json:"event_id"`
	VaazCenterID int64    `json:"vaaz_center_id"`
	ITSIDs       []string `json:"its_ids"`
	Gender       string   `json:"gender"`
	Reason       string   `json:"reason"`
}

// SetLocks locks or unlocks the preferences of every member in req.
func (c *Client) SetLocks(ctx context.Context, cred model.Credential, req model.LockRequest) error {
	const op = "set_locks"

	if err := req.Validate(); err != nil {
		return err
	}
	body := lockBody{
		ITSIDs:   itsIDs(req.MemberIDs),
		IsLocked: req.Locked,
		Reason:   req.Reason,
	}
	if _, err := c.do(ctx, cred, op, http.MethodPut, pathLocks, nil, body); err != nil {
		return err
	}
	c.logger.Info(ctx, "preferences lock changed",
		logger.Int("members", len(req.MemberIDs)),
		logger.Bool("locked", req.Locked))
	return nil
}

// AdminAssign places every member in req at req.VenueID. The backend checks
// capacity; no member-facing rule is applied here.
func (c *Client) AdminAssign(ctx context.Context, cred model.Credential, req model.AssignRequest) error {
	const op = "admin_assign"

	if err := req.Validate(); err != nil {
		return err
	}
	body := assignBody{
		EventID:      req.EventID,
		VaazCenterID: req.VenueID,
		ITSIDs:       itsIDs(req.MemberIDs),
		Gender:       string(req.Gender),
		Reason:       req.Reason,
	}
	if _, err := c.do(ctx, cred, op, http.MethodPut, pathAdminAssign, nil, body); err != nil {
		return err
	}
	c.logger.Info(ctx, "members assigned by operator",
		logger.Int64("event_id", req.EventID),
		logger.Int64("venue_id", req.VenueID),
		logger.Int("members", len(req.MemberIDs)))
	return nil
}

func itsIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
