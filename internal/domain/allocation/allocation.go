// Package allocation submits pending venue selections to the preference backend.
//
// A submission is split into members without a confirmed preference, which
// are created, and members with one, which are updated. Each partition is sent
// as one batched call and both calls run concurrently.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dakheliyah/vms/internal/domain/constraint"
	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
	"github.com/dakheliyah/vms/pkg/metrics"
)

// Writer persists batches of preferences. A nil error with no rows means the
// whole batch succeeded.
type Writer interface {
	CreatePreferences(ctx context.Context, cred model.Credential, eventID int64, batch []model.Selection) ([]model.RowResult, error)
	UpdatePreferences(ctx context.Context, cred model.Credential, eventID int64, batch []model.Selection) ([]model.RowResult, error)
}

// State is the roster and capacity snapshot a submission is validated against.
type State interface {
	Member(id int64) (model.Member, bool)
	Venue(id int64) (model.Venue, bool)
}

// Tracker records busy members and their feedback messages.
type Tracker interface {
	Begin(ids ...int64)
	End(ids ...int64)
	SetMessage(id int64, kind model.MessageKind, text string)
}

// Pending is the store of selections waiting to be submitted.
type Pending interface {
	ClearIf(sel model.Selection) bool
}

// OutcomeSink receives one Outcome per submitted member.
type OutcomeSink interface {
	Enqueue(ctx context.Context, o model.Outcome) error
}

// Submitter validates and submits selections for one event.
type Submitter struct {
	writer  Writer
	state   State
	tracker Tracker
	pending Pending

	evaluator    *constraint.Evaluator
	requireBlock bool
	onConfirmed  func(ctx context.Context, memberIDs []int64)
	sink         OutcomeSink
	logger       logger.Logger
}

// New creates a Submitter.
func New(writer Writer, state State, tracker Tracker, pending Pending, opts ...Option) *Submitter {
	s := &Submitter{
		writer:    writer,
		state:     state,
		tracker:   tracker,
		pending:   pending,
		evaluator: constraint.New(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// item is a selection that passed local validation.
type item struct {
	sel    model.Selection
	member model.Member
	venue  model.Venue
}

// partition is the result of one batched backend call.
type partition struct {
	verb  model.Verb
	items []item
	rows  []model.RowResult
	err   error
}

// BulkSelections builds the same venue and block choice for every member in ids.
func BulkSelections(ids []int64, venueID int64, blockID *int64) []model.Selection {
	out := make([]model.Selection, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Selection{MemberID: id, VenueID: venueID, BlockID: blockID}.Clone())
	}
	return out
}

// Submit validates selections, sends the create and update partitions and
// returns one result per selection in input order. Members that fail local
// validation never reach the backend.
func (s *Submitter) Submit(ctx context.Context, cred model.Credential, eventID int64, selections []model.Selection) model.Report {
	const op = "allocation.Submit"
	start := time.Now()
	defer func() { metrics.RecordSubmitLatency(float64(time.Since(start).Milliseconds())) }()

	results := make(map[int64]model.Result, len(selections))
	order := make([]int64, 0, len(selections))
	var rejected []model.Result

	creates := partition{verb: model.VerbCreate}
	updates := partition{verb: model.VerbUpdate}
	seen := make(map[int64]bool, len(selections))

	for _, sel := range selections {
		it, err := s.validate(sel, seen)
		seen[sel.MemberID] = true
		if err != nil {
			res := model.Result{
				MemberID: sel.MemberID,
				Kind:     model.KindValidation,
				Message:  validationMessage(err, it),
			}
			// A duplicate keeps the first occurrence's result.
			if errors.Is(err, ErrDuplicate) {
				rejected = append(rejected, res)
			} else {
				results[sel.MemberID] = res
				order = append(order, sel.MemberID)
				s.tracker.SetMessage(sel.MemberID, model.MessageError, res.Message)
			}
			metrics.RecordLocalRejection(rejectionReason(err))
			s.logger.Debug(ctx, "selection rejected locally",
				logger.String("op", op),
				logger.Int64("member_id", sel.MemberID),
				logger.Error(err))
			continue
		}
		order = append(order, sel.MemberID)
		if it.member.HasPreference() {
			updates.items = append(updates.items, it)
		} else {
			creates.items = append(creates.items, it)
		}
	}

	ids := make([]int64, 0, len(creates.items)+len(updates.items))
	for _, it := range creates.items {
		ids = append(ids, it.sel.MemberID)
	}
	for _, it := range updates.items {
		ids = append(ids, it.sel.MemberID)
	}

	var report model.Report
	if len(ids) > 0 {
		// A dispatched write runs to completion even when the caller goes
		// away; the writer's own timeout bounds it.
		ctx = context.WithoutCancel(ctx)

		s.tracker.Begin(ids...)
		defer s.tracker.End(ids...)

		var g errgroup.Group
		g.Go(func() error { s.send(ctx, cred, eventID, &creates); return nil })
		g.Go(func() error { s.send(ctx, cred, eventID, &updates); return nil })
		_ = g.Wait()

		var confirmed []int64
		for _, p := range []*partition{&creates, &updates} {
			for _, res := range s.apply(p) {
				results[res.MemberID] = res
				if res.OK {
					confirmed = append(confirmed, res.MemberID)
				}
			}
			if p.err != nil && len(selections) > 1 {
				report.Bulk = bulkMessage(p, report.Bulk)
			}
		}

		if len(confirmed) > 0 && s.onConfirmed != nil {
			s.onConfirmed(ctx, confirmed)
		}
	}

	report.Results = make([]model.Result, 0, len(order)+len(rejected))
	for _, id := range order {
		report.Results = append(report.Results, results[id])
	}
	report.Results = append(report.Results, rejected...)

	s.publish(ctx, eventID, selections, report)

	s.logger.Info(ctx, "submission finished",
		logger.String("op", op),
		logger.Int64("event_id", eventID),
		logger.Int("selections", len(selections)),
		logger.Int("created", len(creates.items)),
		logger.Int("updated", len(updates.items)),
		logger.Int("failed", len(report.Failed())),
		logger.Duration("took", time.Since(start)))

	return report
}

// validate resolves sel against the snapshot and the evaluator.
func (s *Submitter) validate(sel model.Selection, seen map[int64]bool) (item, error) {
	it := item{sel: sel.Clone()}
	if seen[sel.MemberID] {
		return it, ErrDuplicate
	}

	m, ok := s.state.Member(sel.MemberID)
	if !ok {
		return it, ErrUnknownMember
	}
	it.member = m

	if m.Locked() {
		return it, fmt.Errorf("%w: %w", ErrValidation, constraint.ErrLocked)
	}

	v, ok := s.state.Venue(sel.VenueID)
	if !ok {
		return it, ErrUnknownVenue
	}
	it.venue = v

	candidate := model.Candidate{Venue: v}
	switch {
	case sel.BlockID != nil:
		b, ok := v.Block(*sel.BlockID)
		if !ok {
			return it, ErrUnknownBlock
		}
		candidate.Block = &b
	case s.requireBlock && len(v.Blocks) > 0:
		return it, ErrBlockRequired
	}

	if err := s.evaluator.Check(m, candidate); err != nil {
		return it, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return it, nil
}

// send performs one batched call for p. Empty partitions make no call.
func (s *Submitter) send(ctx context.Context, cred model.Credential, eventID int64, p *partition) {
	if len(p.items) == 0 {
		return
	}

	batch := make([]model.Selection, len(p.items))
	for i, it := range p.items {
		batch[i] = it.sel
	}

	if p.verb == model.VerbCreate {
		p.rows, p.err = s.writer.CreatePreferences(ctx, cred, eventID, batch)
	} else {
		p.rows, p.err = s.writer.UpdatePreferences(ctx, cred, eventID, batch)
	}

	outcome := "ok"
	if p.err != nil {
		outcome = string(model.KindOf(p.err))
		s.logger.Warn(ctx, "preference write failed",
			logger.String("verb", string(p.verb)),
			logger.Int("members", len(batch)),
			logger.Error(p.err))
	}
	metrics.RecordSubmission(string(p.verb), outcome, len(batch))
}

// apply turns p's backend answer into per-member results and feedback.
func (s *Submitter) apply(p *partition) []model.Result {
	if len(p.items) == 0 {
		return nil
	}

	rows := make(map[int64]model.RowResult, len(p.rows))
	for _, r := range p.rows {
		rows[r.MemberID] = r
	}

	out := make([]model.Result, 0, len(p.items))
	for _, it := range p.items {
		res := model.Result{MemberID: it.sel.MemberID, Verb: p.verb}

		switch row, ok := rows[it.sel.MemberID]; {
		case p.err != nil:
			res.Kind = model.KindOf(p.err)
			res.Message = model.UserMessage(p.err)
		case ok && !row.OK:
			res.Kind = model.KindRejected
			res.Message = row.Message
			if res.Message == "" {
				res.Message = "Failed to save preference"
			}
		default:
			res.OK = true
			res.Message = successMessage(it.venue)
		}

		if res.OK {
			s.tracker.SetMessage(res.MemberID, model.MessageSuccess, res.Message)
			s.pending.ClearIf(it.sel)
		} else {
			s.tracker.SetMessage(res.MemberID, model.MessageError, res.Message)
		}
		out = append(out, res)
	}
	return out
}

// publish hands every result to the outcome sink, if one is configured.
func (s *Submitter) publish(ctx context.Context, eventID int64, selections []model.Selection, report model.Report) {
	if s.sink == nil {
		return
	}

	byMember := make(map[int64]model.Selection, len(selections))
	for _, sel := range selections {
		if _, ok := byMember[sel.MemberID]; !ok {
			byMember[sel.MemberID] = sel
		}
	}

	now := time.Now()
	for _, res := range report.Results {
		sel := byMember[res.MemberID]
		o := model.Outcome{
			ID:       uuid.NewString(),
			EventID:  eventID,
			MemberID: res.MemberID,
			VenueID:  sel.VenueID,
			BlockID:  sel.Clone().BlockID,
			Verb:     res.Verb,
			OK:       res.OK,
			Kind:     res.Kind,
			Message:  res.Message,
			At:       now,
		}
		if err := s.sink.Enqueue(ctx, o); err != nil {
			s.logger.Warn(ctx, "outcome not enqueued",
				logger.Int64("member_id", res.MemberID),
				logger.Error(err))
		}
	}
}

func successMessage(v model.Venue) string {
	name := v.Name
	if name == "" {
		name = fmt.Sprintf("Venue %d", v.ID)
	}
	return name + " selected successfully"
}

func bulkMessage(p *partition, prev *model.Message) *model.Message {
	verb := "create"
	if p.verb == model.VerbUpdate {
		verb = "update"
	}
	text := fmt.Sprintf("Failed to %s %d preferences: %s", verb, len(p.items), model.UserMessage(p.err))
	if prev != nil {
		text = prev.Text + "; " + text
	}
	return &model.Message{Kind: model.MessageError, Text: text, At: time.Now()}
}

func validationMessage(err error, it item) string {
	switch {
	case errors.Is(err, constraint.ErrLocked):
		return "Preference is locked and cannot be changed"
	case errors.Is(err, constraint.ErrGenderMismatch):
		return "Selected block is not available for this member"
	case errors.Is(err, constraint.ErrNoCapacity):
		if it.venue.Name != "" {
			return "No seats available at " + it.venue.Name
		}
		return "No seats available"
	case errors.Is(err, constraint.ErrForeignBlock), errors.Is(err, ErrUnknownBlock):
		return "Selected block does not belong to this venue"
	case errors.Is(err, ErrBlockRequired):
		return "Please select a block"
	case errors.Is(err, ErrUnknownVenue):
		return "Selected venue is not available"
	case errors.Is(err, ErrUnknownMember):
		return "Member is not part of this family"
	case errors.Is(err, ErrDuplicate):
		return "Member was selected more than once"
	default:
		return err.Error()
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownMember):
		return "unknown_member"
	case errors.Is(err, ErrUnknownVenue):
		return "unknown_venue"
	case errors.Is(err, ErrUnknownBlock):
		return "unknown_block"
	case errors.Is(err, ErrBlockRequired):
		return "block_required"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	default:
		return constraint.Reason(err)
	}
}
