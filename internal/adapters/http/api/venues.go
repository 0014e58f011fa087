// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/dakheliyah/vms/internal/domain/types"
)

// VenuesHandler serves capacity snapshots.
type VenuesHandler struct {
	deps Dependencies
}

// NewVenuesHandler creates a new venues handler.
func NewVenuesHandler(deps Dependencies) *VenuesHandler {
	return &VenuesHandler{deps: deps}
}

// HandleGetVenues handles GET /events/{eventID}/venues requests.
// Query parameters:
//   - refresh: "true" bypasses the capacity cache.
func (h *VenuesHandler) HandleGetVenues(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_venues"

	sess, ok := openSession(w, r, h.deps, op)
	if !ok {
		return
	}

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		refresh = v
	}

	venues, err := sess.Venues(r.Context(), refresh)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromVenues(venues))
}
