package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dakheliyah/vms/internal/adapters/http/api"
	"github.com/dakheliyah/vms/internal/domain/constraint"
	"github.com/dakheliyah/vms/internal/domain/dedupe"
	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockSession struct {
	mu sync.Mutex

	venues    []model.Venue
	venuesErr error
	refreshed bool

	members   []types.Member
	selectErr error
	selected  []model.Selection
	cleared   []int64

	submitted     []int64
	submitAll     bool
	heterogeneous []model.Selection
	bulk          *model.Selection
	bulkIDs       []int64
	report        model.Report
	submitErr     error
	submitCalls   int
}

func (m *mockSession) Venues(_ context.Context, refresh bool) ([]model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = refresh
	return m.venues, m.venuesErr
}

func (m *mockSession) Overview(context.Context) ([]types.Member, error) {
	return m.members, nil
}

func (m *mockSession) Select(_ context.Context, memberID, venueID int64, blockID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selectErr != nil {
		return m.selectErr
	}
	m.selected = append(m.selected, model.Selection{MemberID: memberID, VenueID: venueID, BlockID: blockID})
	return nil
}

func (m *mockSession) ClearSelection(memberID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, memberID)
}

func (m *mockSession) Submit(_ context.Context, memberIDs []int64) (model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	m.submitAll = len(memberIDs) == 0
	m.submitted = memberIDs
	return m.report, m.submitErr
}

func (m *mockSession) SubmitSelections(_ context.Context, selections []model.Selection) (model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heterogeneous = selections
	return m.report, m.submitErr
}

func (m *mockSession) BulkAssign(_ context.Context, ids []int64, venueID int64, blockID *int64) (model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	m.bulkIDs = ids
	m.bulk = &model.Selection{VenueID: venueID, BlockID: blockID}
	return m.report, m.submitErr
}

func (m *mockSession) Status(memberID int64) types.Status {
	return types.Status{MemberID: memberID, Busy: false}
}

type mockDependencies struct {
	session   *mockSession
	openErr   error
	lastCred  model.Credential
	lastEvent int64
	active    model.Event
	activeErr error
}

func (d *mockDependencies) Open(_ context.Context, cred model.Credential, eventID int64) (api.Session, error) {
	d.lastCred = cred
	d.lastEvent = eventID
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.session, nil
}

func (d *mockDependencies) ActiveEvent(context.Context, model.Credential) (model.Event, error) {
	return d.active, d.activeErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string, token bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token {
		req.Header.Set("Token", "secret")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{session: &mockSession{}}
		mux := newMux(deps)

		Convey("When calling /healthz", func() {
			w := do(mux, http.MethodGet, "/healthz", "", false)

			Convey("Then Prometheus metrics should be served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When calling /stats", func() {
			w := do(mux, http.MethodGet, "/stats", "", false)

			Convey("Then the stats should be returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When a caller sends a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set("X-Request-ID", "req-42")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should be echoed back", func() {
				So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-42")
			})
		})

		Convey("When a caller sends none", func() {
			w := do(mux, http.MethodGet, "/stats", "", false)

			Convey("Then one should be generated", func() {
				So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})
		})
	})
}

func TestCredentials(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{session: &mockSession{}}
		mux := newMux(deps)

		Convey("When no token or cookie is sent", func() {
			w := do(mux, http.MethodGet, "/events/1/venues", "", false)

			Convey("Then the request should be unauthorized", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decodeError(w)["code"], ShouldEqual, "unauthorized")
			})
		})

		Convey("When the token comes from the its_no cookie", func() {
			req := httptest.NewRequest(http.MethodGet, "/events/3/venues", http.NoBody)
			req.AddCookie(&http.Cookie{Name: "its_no", Value: "cookie-token"})
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the session should be opened with it", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastCred.Token(), ShouldEqual, "cookie-token")
				So(deps.lastEvent, ShouldEqual, 3)
			})
		})

		Convey("When the event id is not a positive number", func() {
			w := do(mux, http.MethodGet, "/events/abc/venues", "", true)
			w0 := do(mux, http.MethodGet, "/events/0/venues", "", true)

			Convey("Then the request should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w0.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestVenuesHandler(t *testing.T) {
	Convey("Given a session with one venue", t, func() {
		sess := &mockSession{venues: []model.Venue{{ID: 5, Name: "Hall", Capacity: 10, Availability: 4}}}
		mux := newMux(&mockDependencies{session: sess})

		Convey("When listing venues", func() {
			w := do(mux, http.MethodGet, "/events/1/venues", "", true)

			Convey("Then the snapshot should use backend field names", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []types.Venue
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out, ShouldHaveLength, 1)
				So(out[0].Capacity, ShouldEqual, 10)
				So(w.Body.String(), ShouldContainSubstring, `"est_capacity":10`)
				So(sess.refreshed, ShouldBeFalse)
			})
		})

		Convey("When asking for a refresh", func() {
			w := do(mux, http.MethodGet, "/events/1/venues?refresh=true", "", true)

			Convey("Then the session should be told to refresh", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.refreshed, ShouldBeTrue)
			})
		})

		Convey("When refresh is not a boolean", func() {
			w := do(mux, http.MethodGet, "/events/1/venues?refresh=maybe", "", true)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the backend is unreachable", func() {
			sess.venuesErr = &model.ServiceError{Kind: model.ErrTransport, Message: "Unable to reach the server, please try again"}
			w := do(mux, http.MethodGet, "/events/1/venues", "", true)

			Convey("Then a bad gateway should carry the user message", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(decodeError(w)["message"], ShouldEqual, "Unable to reach the server, please try again")
			})
		})

		Convey("When the backend rejects the token", func() {
			sess.venuesErr = &model.ServiceError{Kind: model.ErrRejected, Status: http.StatusUnauthorized, Message: "Invalid token"}
			w := do(mux, http.MethodGet, "/events/1/venues", "", true)

			Convey("Then the client should see 401", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decodeError(w)["message"], ShouldEqual, "Invalid token")
			})
		})
	})
}

func TestMembersHandler(t *testing.T) {
	Convey("Given a session with a roster", t, func() {
		sess := &mockSession{members: []types.Member{{ID: 1, Name: "One", Selectable: []types.Candidate{}}}}
		mux := newMux(&mockDependencies{session: sess})

		Convey("When listing members", func() {
			w := do(mux, http.MethodGet, "/events/1/members", "", true)

			Convey("Then the overview should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"its_id":1`)
			})
		})

		Convey("When asking for a member status", func() {
			w := do(mux, http.MethodGet, "/events/1/members/7/status", "", true)
			bad := do(mux, http.MethodGet, "/events/1/members/x/status", "", true)

			Convey("Then the status should be returned for valid ids only", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"its_id":7`)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSelectionsHandler(t *testing.T) {
	Convey("Given a session", t, func() {
		sess := &mockSession{report: model.Report{Results: []model.Result{{MemberID: 1, OK: true, Message: "Hall selected successfully"}}}}
		mux := newMux(&mockDependencies{session: sess})

		Convey("When selecting a venue and block", func() {
			w := do(mux, http.MethodPut, "/events/1/selections/4", `{"venue_id":7,"block_id":71}`, true)

			Convey("Then the selection should be recorded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.selected, ShouldHaveLength, 1)
				So(sess.selected[0].MemberID, ShouldEqual, 4)
				So(*sess.selected[0].BlockID, ShouldEqual, 71)
			})
		})

		Convey("When the evaluator refuses the selection", func() {
			sess.selectErr = fmt.Errorf("selection not allowed: %w", constraint.ErrLocked)
			w := do(mux, http.MethodPut, "/events/1/selections/2", `{"venue_id":5}`, true)

			Convey("Then the response should be a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w)["code"], ShouldEqual, "not_selectable")
			})
		})

		Convey("When the member is unknown", func() {
			sess.selectErr = fmt.Errorf("%w: member is not on the roster", model.ErrValidation)
			w := do(mux, http.MethodPut, "/events/1/selections/99", `{"venue_id":5}`, true)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When the body is missing a venue or is not JSON", func() {
			noVenue := do(mux, http.MethodPut, "/events/1/selections/1", `{}`, true)
			garbage := do(mux, http.MethodPut, "/events/1/selections/1", `{`, true)

			Convey("Then both should be bad requests", func() {
				So(noVenue.Code, ShouldEqual, http.StatusBadRequest)
				So(garbage.Code, ShouldEqual, http.StatusBadRequest)
				So(sess.selected, ShouldBeEmpty)
			})
		})

		Convey("When clearing a selection", func() {
			w := do(mux, http.MethodDelete, "/events/1/selections/4", "", true)

			Convey("Then the store should be cleared for that member", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.cleared, ShouldResemble, []int64{4})
			})
		})

		Convey("When submitting without a body", func() {
			w := do(mux, http.MethodPost, "/events/1/submit", "", true)

			Convey("Then every pending selection should be submitted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.submitAll, ShouldBeTrue)
				var report model.Report
				So(json.Unmarshal(w.Body.Bytes(), &report), ShouldBeNil)
				So(report.Results, ShouldHaveLength, 1)
				So(report.Results[0].OK, ShouldBeTrue)
			})
		})

		Convey("When submitting named members", func() {
			w := do(mux, http.MethodPost, "/events/1/submit", `{"member_ids":[1,2]}`, true)

			Convey("Then only they should be submitted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.submitted, ShouldResemble, []int64{1, 2})
			})
		})

		Convey("When submitting explicit selections", func() {
			w := do(mux, http.MethodPost, "/events/1/submit",
				`{"selections":[{"member_id":1,"venue_id":7},{"member_id":2,"venue_id":5,"block_id":3}]}`, true)

			Convey("Then they should be submitted as given", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.heterogeneous, ShouldHaveLength, 2)
				So(*sess.heterogeneous[1].BlockID, ShouldEqual, 3)
			})
		})

		Convey("When mixing member ids and selections", func() {
			w := do(mux, http.MethodPost, "/events/1/submit",
				`{"member_ids":[1],"selections":[{"member_id":1,"venue_id":7}]}`, true)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When nothing is pending", func() {
			sess.submitErr = fmt.Errorf("%w: no pending selections", model.ErrValidation)
			w := do(mux, http.MethodPost, "/events/1/submit", "", true)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When bulk assigning", func() {
			w := do(mux, http.MethodPost, "/events/1/bulk-assign", `{"member_ids":[1,2,3],"venue_id":7}`, true)

			Convey("Then the same venue should go to every member", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.bulkIDs, ShouldResemble, []int64{1, 2, 3})
				So(sess.bulk.VenueID, ShouldEqual, 7)
				So(sess.bulk.BlockID, ShouldBeNil)
			})
		})

		Convey("When bulk assigning without a venue", func() {
			w := do(mux, http.MethodPost, "/events/1/bulk-assign", `{"member_ids":[1]}`, true)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestIdempotencyKey(t *testing.T) {
	Convey("Given a server that remembers idempotency keys", t, func() {
		sess := &mockSession{report: model.Report{Results: []model.Result{{MemberID: 1, OK: true}}}}
		server := api.NewServer(&mockDependencies{session: sess}, &mockStatsProvider{},
			api.WithDeduper(dedupe.NewInMemoryDeduper()))
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		post := func(target, body, key string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
			req.Header.Set("Token", "secret")
			if key != "" {
				req.Header.Set("Idempotency-Key", key)
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When the same submission is sent twice", func() {
			first := post("/events/1/submit", `{"member_ids":[1]}`, "k1")
			second := post("/events/1/submit", `{"member_ids":[1]}`, "k1")

			Convey("Then only the first should reach the session", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(second)["code"], ShouldEqual, "duplicate_request")
				So(sess.submitCalls, ShouldEqual, 1)
			})
		})

		Convey("When the key is reused on another event", func() {
			post("/events/1/bulk-assign", `{"venue_id":7}`, "k2")
			w := post("/events/2/bulk-assign", `{"venue_id":7}`, "k2")

			Convey("Then it should be treated as a new request", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(sess.submitCalls, ShouldEqual, 2)
			})
		})

		Convey("When the first attempt fails", func() {
			sess.submitErr = fmt.Errorf("%w: no pending selections", model.ErrValidation)
			failed := post("/events/1/submit", "", "k3")
			sess.submitErr = nil
			retried := post("/events/1/submit", "", "k3")

			Convey("Then the retry should be allowed", func() {
				So(failed.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(retried.Code, ShouldEqual, http.StatusOK)
				So(sess.submitCalls, ShouldEqual, 2)
			})
		})

		Convey("When no key is sent", func() {
			post("/events/1/submit", "", "")
			post("/events/1/submit", "", "")

			So(sess.submitCalls, ShouldEqual, 2)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the active event endpoint", t, func() {
		deps := &mockDependencies{session: &mockSession{}, active: model.Event{ID: 12, Name: "Ashara", Status: "active"}}
		mux := newMux(deps)

		Convey("When an event is active", func() {
			w := do(mux, http.MethodGet, "/events/active", "", true)

			Convey("Then it should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ev model.Event
				So(json.Unmarshal(w.Body.Bytes(), &ev), ShouldBeNil)
				So(ev.ID, ShouldEqual, 12)
			})
		})

		Convey("When no event is active", func() {
			deps.activeErr = errors.New("no active event")
			w := do(mux, http.MethodGet, "/events/active", "", true)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the backend fails", func() {
			deps.activeErr = &model.ServiceError{Kind: model.ErrTransport, Status: 503, Message: "HTTP error! status: 503"}
			w := do(mux, http.MethodGet, "/events/active", "", true)
			So(w.Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When the session cannot be opened", func() {
			deps.openErr = errors.New("service not started")
			w := do(mux, http.MethodGet, "/events/1/members", "", true)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
