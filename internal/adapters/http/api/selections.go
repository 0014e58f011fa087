// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dakheliyah/vms/internal/domain/dedupe"
	"github.com/dakheliyah/vms/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// selectRequest mirrors the OpenAPI schema for PUT /events/{eventID}/selections/{memberID}.
type selectRequest struct {
	VenueID int64  `json:"venue_id"`
	BlockID *int64 `json:"block_id,omitempty"`
}

// submitRequest mirrors the OpenAPI schema for POST /events/{eventID}/submit.
type submitRequest struct {
	MemberIDs  []int64           `json:"member_ids,omitempty"`
	Selections []model.Selection `json:"selections,omitempty"`
}

// bulkRequest mirrors the OpenAPI schema for POST /events/{eventID}/bulk-assign.
type bulkRequest struct {
	MemberIDs []int64 `json:"member_ids"`
	VenueID   int64   `json:"venue_id"`
	BlockID   *int64  `json:"block_id,omitempty"`
}

type ackResponse struct {
	Status string `json:"status"`
}

// idempotencyHeader names the request header carrying a client chosen key
// for submit and bulk-assign.
const idempotencyHeader = "Idempotency-Key"

// SelectionsHandler records pending selections and submits them.
type SelectionsHandler struct {
	deps   Dependencies
	dedupe dedupe.Deduper
}

// NewSelectionsHandler creates a new selections handler.
func NewSelectionsHandler(deps Dependencies) *SelectionsHandler {
	return &SelectionsHandler{deps: deps}
}

// HandlePutSelection handles PUT /events/{eventID}/selections/{memberID} requests.
func (h *SelectionsHandler) HandlePutSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_selection"

	memberID, ok := pathID(r, "memberID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid member id")))
		return
	}
	var req selectRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.VenueID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing venue_id")))
		return
	}

	sess, ok := openSession(w, r, h.deps, op)
	if !ok {
		return
	}
	if err := sess.Select(r.Context(), memberID, req.VenueID, req.BlockID); err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sess.Status(memberID))
}

// HandleDeleteSelection handles DELETE /events/{eventID}/selections/{memberID} requests.
func (h *SelectionsHandler) HandleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_selection"

	memberID, ok := pathID(r, "memberID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid member id")))
		return
	}
	sess, ok := openSession(w, r, h.deps, op)
	if !ok {
		return
	}
	sess.ClearSelection(memberID)
	writeJSON(w, http.StatusOK, ackResponse{Status: "cleared"})
}

// HandleSubmit handles POST /events/{eventID}/submit requests. An empty body
// submits every pending selection of the session.
func (h *SelectionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"

	var req submitRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.MemberIDs) > 0 && len(req.Selections) > 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("member_ids and selections are mutually exclusive")))
		return
	}

	sess, ok := openSession(w, r, h.deps, op)
	if !ok {
		return
	}
	release, ok := h.claim(w, r, op)
	if !ok {
		return
	}

	var (
		report model.Report
		err    error
	)
	if len(req.Selections) > 0 {
		report, err = sess.SubmitSelections(r.Context(), req.Selections)
	} else {
		report, err = sess.Submit(r.Context(), req.MemberIDs)
	}
	if err != nil {
		release()
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleBulkAssign handles POST /events/{eventID}/bulk-assign requests.
// Without member_ids the whole roster is assigned.
func (h *SelectionsHandler) HandleBulkAssign(w http.ResponseWriter, r *http.Request) {
	const op = "api.bulk_assign"

	var req bulkRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.VenueID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing venue_id")))
		return
	}

	sess, ok := openSession(w, r, h.deps, op)
	if !ok {
		return
	}
	release, ok := h.claim(w, r, op)
	if !ok {
		return
	}
	report, err := sess.BulkAssign(r.Context(), req.MemberIDs, req.VenueID, req.BlockID)
	if err != nil {
		release()
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// claim records the request's idempotency key, scoped to the session
// token and event. It answers 409 when the key was already used. The
// returned func forgets the key so a failed request can be retried.
func (h *SelectionsHandler) claim(w http.ResponseWriter, r *http.Request, op string) (func(), bool) {
	key := r.Header.Get(idempotencyHeader)
	if h.dedupe == nil || key == "" {
		return func() {}, true
	}
	cred, _ := credentialFrom(r)
	scoped := cred.Token() + ":" + r.PathValue("eventID") + ":" + key
	if h.dedupe.SeenAndRecord(r.Context(), scoped) {
		writeError(w, http.StatusConflict, "duplicate_request",
			WrapKind(op, ErrDuplicate, fmt.Errorf("idempotency key %q already used", key)))
		return nil, false
	}
	return func() { h.dedupe.Forget(r.Context(), scoped) }, true
}

// decodeBody reads a JSON body into v. With allowEmpty an absent body
// leaves v untouched.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}
