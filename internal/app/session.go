package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dakheliyah/vms/internal/domain/allocation"
	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/internal/domain/selection"
	"github.com/dakheliyah/vms/internal/domain/tracker"
	"github.com/dakheliyah/vms/internal/domain/types"
	"github.com/dakheliyah/vms/pkg/logger"
	"github.com/dakheliyah/vms/pkg/metrics"
)

const msgNothingSelected = "Nothing selected"

// Session is the coordinator state of one credential for one event.
type Session struct {
	svc     *Service
	cred    model.Credential
	eventID int64

	mu      sync.RWMutex
	members []model.Member
	venues  []model.Venue
	// Zero until the first successful load.
	rosterAt   time.Time
	capacityAt time.Time

	store     *selection.Store
	tracker   *tracker.Tracker
	submitter *allocation.Submitter

	used   atomic.Int64
	logger logger.Logger
}

func newSession(svc *Service, cred model.Credential, eventID int64) *Session {
	sess := &Session{
		svc:     svc,
		cred:    cred,
		eventID: eventID,
		store:   selection.New(),
		tracker: tracker.New(tracker.WithMessageTTL(svc.messageTTL)),
		logger:  svc.logger.Named("session"),
	}
	sess.submitter = allocation.New(svc.backend, sess, sess.tracker, sess.store,
		allocation.WithEvaluator(svc.evaluator),
		allocation.WithRequireBlock(svc.requireBlock),
		allocation.WithOnConfirmed(sess.confirmed),
		allocation.WithOutcomeSink(svc.outcomes),
		allocation.WithLogger(svc.logger.Named("allocation")),
	)
	sess.touch()
	return sess
}

// EventID returns the event the session belongs to.
func (s *Session) EventID() int64 { return s.eventID }

// Venues returns the capacity snapshot, loading it on first use. With
// refresh set the backend is asked again, bypassing the capacity cache.
func (s *Session) Venues(ctx context.Context, refresh bool) ([]model.Venue, error) {
	s.touch()

	s.mu.RLock()
	loaded := !s.capacityAt.IsZero()
	s.mu.RUnlock()
	if !loaded || refresh {
		if err := s.loadCapacity(ctx, refresh); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneVenues(s.venues), nil
}

// Roster returns the family roster, loading it on first use.
func (s *Session) Roster(ctx context.Context) ([]model.Member, error) {
	s.touch()

	s.mu.RLock()
	loaded := !s.rosterAt.IsZero()
	s.mu.RUnlock()
	if !loaded {
		if err := s.Refetch(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Member, len(s.members))
	copy(out, s.members)
	return out, nil
}

// Refetch reloads the roster from the backend.
func (s *Session) Refetch(ctx context.Context) error {
	members, err := s.svc.backend.FetchRoster(ctx, s.cred, s.eventID)
	if err != nil {
		return fmt.Errorf("fetch roster for event %d: %w", s.eventID, err)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	s.mu.Lock()
	s.members = members
	s.rosterAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Session) loadCapacity(ctx context.Context, refresh bool) error {
	venues, err := s.svc.capacity.Fetch(ctx, s.cred, s.eventID, refresh)
	if err != nil {
		return fmt.Errorf("fetch capacity for event %d: %w", s.eventID, err)
	}

	s.mu.Lock()
	s.venues = venues
	s.capacityAt = time.Now()
	s.mu.Unlock()
	return nil
}

// invalidate forgets both snapshots so the next read reloads them.
func (s *Session) invalidate() {
	s.mu.Lock()
	s.rosterAt = time.Time{}
	s.capacityAt = time.Time{}
	s.mu.Unlock()
}

// load makes sure both snapshots are present.
func (s *Session) load(ctx context.Context) error {
	if _, err := s.Roster(ctx); err != nil {
		return err
	}
	_, err := s.Venues(ctx, false)
	return err
}

// Member returns the roster entry for id.
func (s *Session) Member(id int64) (model.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ID == id {
			return m, true
		}
	}
	return model.Member{}, false
}

// Venue returns the snapshot entry for id.
func (s *Session) Venue(id int64) (model.Venue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.venues {
		if v.ID == id {
			return v.Clone(), true
		}
	}
	return model.Venue{}, false
}

// Select records a pending selection after the evaluator accepts it.
// Locked members and full or ineligible venues and blocks are refused.
func (s *Session) Select(ctx context.Context, memberID, venueID int64, blockID *int64) error {
	if err := s.load(ctx); err != nil {
		return err
	}

	m, ok := s.Member(memberID)
	if !ok {
		return allocation.ErrUnknownMember
	}
	v, ok := s.Venue(venueID)
	if !ok {
		return allocation.ErrUnknownVenue
	}

	candidate := model.Candidate{Venue: v}
	if blockID != nil {
		b, ok := v.Block(*blockID)
		if !ok {
			return allocation.ErrUnknownBlock
		}
		candidate.Block = &b
	}

	if err := s.svc.evaluator.Check(m, candidate); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSelectable, err)
	}

	s.store.Set(memberID, venueID, blockID)
	s.tracker.ClearMessage(memberID)
	return nil
}

// ClearSelection drops the pending selection of memberID.
func (s *Session) ClearSelection(memberID int64) {
	s.touch()
	s.store.Clear(memberID)
}

// Pending returns the pending selections ordered by member id.
func (s *Session) Pending() []model.Selection {
	return s.store.All()
}

// Submit sends the pending selections of memberIDs, or every pending
// selection when memberIDs is empty. A named member without a pending
// selection gets a validation result of its own.
func (s *Session) Submit(ctx context.Context, memberIDs []int64) (model.Report, error) {
	if err := s.load(ctx); err != nil {
		return model.Report{}, err
	}

	var (
		selections []model.Selection
		missing    []model.Result
	)
	if len(memberIDs) == 0 {
		selections = s.store.All()
		if len(selections) == 0 {
			return model.Report{}, ErrNothingToSend
		}
	} else {
		seen := make(map[int64]bool, len(memberIDs))
		for _, id := range memberIDs {
			if sel, ok := s.store.Get(id); ok {
				selections = append(selections, sel)
				continue
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			missing = append(missing, s.nothingSelected(ctx, id))
		}
	}

	var report model.Report
	if len(selections) > 0 {
		report = s.submitter.Submit(ctx, s.cred, s.eventID, selections)
	}
	report.Results = append(report.Results, missing...)
	return report, nil
}

func (s *Session) nothingSelected(ctx context.Context, memberID int64) model.Result {
	res := model.Result{
		MemberID: memberID,
		Kind:     model.KindValidation,
		Message:  msgNothingSelected,
	}
	s.tracker.SetMessage(memberID, model.MessageError, res.Message)
	metrics.RecordLocalRejection("nothing_selected")
	s.logger.Debug(ctx, "no pending selection for member",
		logger.Int64("member_id", memberID))
	return res
}

// SubmitSelections sends selections as given, without going through the
// pending store.
func (s *Session) SubmitSelections(ctx context.Context, selections []model.Selection) (model.Report, error) {
	if len(selections) == 0 {
		return model.Report{}, ErrNothingToSend
	}
	if err := s.load(ctx); err != nil {
		return model.Report{}, err
	}
	return s.submitter.Submit(ctx, s.cred, s.eventID, selections), nil
}

// BulkAssign submits the same venue and block for every member in ids, or
// for the whole roster when ids is empty.
func (s *Session) BulkAssign(ctx context.Context, ids []int64, venueID int64, blockID *int64) (model.Report, error) {
	if err := s.load(ctx); err != nil {
		return model.Report{}, err
	}
	if len(ids) == 0 {
		s.mu.RLock()
		for _, m := range s.members {
			ids = append(ids, m.ID)
		}
		s.mu.RUnlock()
	}
	if len(ids) == 0 {
		return model.Report{}, ErrNothingToSend
	}
	return s.submitter.Submit(ctx, s.cred, s.eventID, allocation.BulkSelections(ids, venueID, blockID)), nil
}

// Status returns the busy flag, pending selection and message of memberID.
func (s *Session) Status(memberID int64) types.Status {
	s.touch()
	st := types.Status{MemberID: memberID, Busy: s.tracker.IsBusy(memberID)}
	if sel, ok := s.store.Get(memberID); ok {
		st.Pending = &sel
	}
	if msg, ok := s.tracker.Message(memberID); ok {
		st.Message = &msg
	}
	return st
}

// Overview returns every roster member with its pending selection, status
// and the candidates it may still pick.
func (s *Session) Overview(ctx context.Context) ([]types.Member, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	members := make([]model.Member, len(s.members))
	copy(members, s.members)
	venues := model.CloneVenues(s.venues)
	s.mu.RUnlock()

	out := make([]types.Member, 0, len(members))
	for _, m := range members {
		view := types.FromMember(m)
		st := s.Status(m.ID)
		view.Busy = st.Busy
		view.Pending = st.Pending
		view.Message = st.Message
		view.Selectable = types.FromCandidates(s.svc.evaluator.Selectable(m, venues))
		out = append(out, view)
	}
	return out, nil
}

// confirmed runs after a submission stored at least one preference. The
// cached capacity of the event is stale from then on.
func (s *Session) confirmed(ctx context.Context, memberIDs []int64) {
	if err := s.svc.capacity.Invalidate(ctx, s.eventID); err != nil {
		s.logger.Warn(ctx, "capacity cache invalidation failed", logger.Error(err))
	}
	if err := s.Refetch(ctx); err != nil {
		s.logger.Warn(ctx, "roster refetch failed",
			logger.Int("confirmed", len(memberIDs)),
			logger.Error(err))
	}
	if err := s.loadCapacity(ctx, true); err != nil {
		s.logger.Warn(ctx, "capacity refetch failed", logger.Error(err))
	}
}

func (s *Session) touch() {
	s.used.Store(time.Now().UnixNano())
}

func (s *Session) lastUsed() time.Time {
	return time.Unix(0, s.used.Load())
}

func (s *Session) close() {
	s.tracker.Close()
	s.store.Reset()
}
