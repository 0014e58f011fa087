// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dakheliyah/vms/internal/domain/constraint"
	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/internal/domain/types"
)

// Session is the coordinator state of one credential for one event.
type Session interface {
	Venues(ctx context.Context, refresh bool) ([]model.Venue, error)
	Overview(ctx context.Context) ([]types.Member, error)
	Select(ctx context.Context, memberID, venueID int64, blockID *int64) error
	ClearSelection(memberID int64)
	Submit(ctx context.Context, memberIDs []int64) (model.Report, error)
	SubmitSelections(ctx context.Context, selections []model.Selection) (model.Report, error)
	BulkAssign(ctx context.Context, memberIDs []int64, venueID int64, blockID *int64) (model.Report, error)
	Status(memberID int64) types.Status
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Open returns the session of cred for eventID.
	Open(ctx context.Context, cred model.Credential, eventID int64) (Session, error)

	// ActiveEvent returns the event clients should work on by default.
	ActiveEvent(ctx context.Context, cred model.Credential) (model.Event, error)
}

// Server wires HTTP routes for the coordinator API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	venuesHandler     *VenuesHandler
	membersHandler    *MembersHandler
	selectionsHandler *SelectionsHandler
	adminHandler      *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		eventsHandler:     NewEventsHandler(deps),
		venuesHandler:     NewVenuesHandler(deps),
		membersHandler:    NewMembersHandler(deps),
		selectionsHandler: NewSelectionsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	handle("GET /stats", "stats", s.statsHandler.HandleStats)
	handle("GET /events/active", "active_event", s.eventsHandler.HandleActiveEvent)
	handle("GET /events/{eventID}/venues", "venues", s.venuesHandler.HandleGetVenues)
	handle("GET /events/{eventID}/members", "members", s.membersHandler.HandleGetMembers)
	handle("GET /events/{eventID}/members/{memberID}/status", "member_status", s.membersHandler.HandleGetStatus)
	handle("PUT /events/{eventID}/selections/{memberID}", "select", s.selectionsHandler.HandlePutSelection)
	handle("DELETE /events/{eventID}/selections/{memberID}", "clear_selection", s.selectionsHandler.HandleDeleteSelection)
	handle("POST /events/{eventID}/submit", "submit", s.selectionsHandler.HandleSubmit)
	handle("POST /events/{eventID}/bulk-assign", "bulk_assign", s.selectionsHandler.HandleBulkAssign)

	if s.adminHandler != nil {
		handle("PUT /admin/locks", "admin_locks", s.adminHandler.HandleSetLocks)
		handle("PUT /admin/events/{eventID}/bulk-assign", "admin_assign", s.adminHandler.HandleAssign)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps coordinator and backend errors to a status code.
// Backend failures carry the user-facing text the backend sent.
func writeServiceError(w http.ResponseWriter, err error) {
	var se *model.ServiceError
	switch {
	case errors.Is(err, constraint.ErrLocked),
		errors.Is(err, constraint.ErrNoCapacity),
		errors.Is(err, constraint.ErrGenderMismatch),
		errors.Is(err, constraint.ErrForeignBlock):
		writeError(w, http.StatusConflict, "not_selectable", err)
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err)
	case errors.As(err, &se) && se.Status == http.StatusUnauthorized:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "unauthorized", Message: se.Message})
	case errors.As(err, &se) && errors.Is(err, model.ErrRejected):
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: "rejected", Message: se.Message})
	case errors.As(err, &se):
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: "backend_unavailable", Message: se.Message})
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// credentialFrom reads the session token from the Token header or, failing
// that, the its_no cookie.
func credentialFrom(r *http.Request) (model.Credential, bool) {
	if token := r.Header.Get("Token"); token != "" {
		return model.NewCredential(token), true
	}
	if c, err := r.Cookie("its_no"); err == nil && c.Value != "" {
		return model.NewCredential(c.Value), true
	}
	return model.Credential{}, false
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// openSession resolves the credential and event of r. It writes the error
// response itself and returns false when the request cannot proceed.
func openSession(w http.ResponseWriter, r *http.Request, deps Dependencies, op string) (Session, bool) {
	cred, ok := credentialFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return nil, false
	}
	eventID, ok := pathID(r, "eventID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid event id")))
		return nil, false
	}
	sess, err := deps.Open(r.Context(), cred, eventID)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return nil, false
	}
	return sess, true
}
