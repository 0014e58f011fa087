// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
)

// MembersHandler serves the roster and per-member status.
type MembersHandler struct {
	deps Dependencies
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(deps Dependencies) *MembersHandler {
	return &MembersHandler{deps: deps}
}

// HandleGetMembers handles GET /events/{eventID}/members requests.
func (h *MembersHandler) HandleGetMembers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_members"

	sess, ok := openSession(w, r, h.deps, op)
	if !ok {
		return
	}

	members, err := sess.Overview(r.Context())
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleGetStatus handles GET /events/{eventID}/members/{memberID}/status requests.
func (h *MembersHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_status"

	memberID, ok := pathID(r, "memberID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid member id")))
		return
	}
	sess, ok := openSession(w, r, h.deps, op)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Status(memberID))
}
