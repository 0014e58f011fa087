package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dakheliyah/vms/internal/domain/model"
)

// AdminDependencies defines the operator calls behind the admin routes.
type AdminDependencies interface {
	SetLocks(ctx context.Context, cred model.Credential, req model.LockRequest) error
	AdminAssign(ctx context.Context, cred model.Credential, req model.AssignRequest) error
}

// lockRequest mirrors the OpenAPI schema for PUT /admin/locks.
type lockRequest struct {
	MemberIDs []int64 `json:"member_ids"`
	Locked    *bool   `json:"locked"`
	Reason    string  `json:"reason"`
}

// adminAssignRequest mirrors the OpenAPI schema for
// PUT /admin/events/{eventID}/bulk-assign.
type adminAssignRequest struct {
	MemberIDs []int64 `json:"member_ids"`
	VenueID   int64   `json:"venue_id"`
	Gender    string  `json:"gender"`
	Reason    string  `json:"reason"`
}

// AdminHandler serves bulk lock and operator assignment.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleSetLocks handles PUT /admin/locks requests.
func (h *AdminHandler) HandleSetLocks(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_locks"

	cred, ok := credentialFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req lockRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Locked == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing locked")))
		return
	}

	err := h.deps.SetLocks(r.Context(), cred, model.LockRequest{
		MemberIDs: req.MemberIDs,
		Locked:    *req.Locked,
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}

// HandleAssign handles PUT /admin/events/{eventID}/bulk-assign requests.
func (h *AdminHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_assign"

	eventID, ok := pathID(r, "eventID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid event id")))
		return
	}
	cred, ok := credentialFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req adminAssignRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.AdminAssign(r.Context(), cred, model.AssignRequest{
		EventID:   eventID,
		VenueID:   req.VenueID,
		MemberIDs: req.MemberIDs,
		Gender:    model.ParseGender(req.Gender),
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}
