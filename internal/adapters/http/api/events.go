// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dakheliyah/vms/internal/domain/model"
)

// EventDependencies defines the interface for event lookups.
type EventDependencies interface {
	ActiveEvent(ctx context.Context, cred model.Credential) (model.Event, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleActiveEvent handles GET /events/active requests.
func (h *EventsHandler) HandleActiveEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.active_event"

	cred, ok := credentialFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	ev, err := h.deps.ActiveEvent(r.Context(), cred)
	if err != nil {
		// Anything but a failed backend call means no event is active.
		var se *model.ServiceError
		if errors.As(err, &se) {
			writeServiceError(w, err)
			return
		}
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
