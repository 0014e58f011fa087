// Package tracker keeps per-member in-flight state and short-lived feedback messages.
package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/metrics"
)

type entry struct {
	msg   model.Message
	gen   uint64
	timer *time.Timer
}

// Tracker records which members have a submission in flight and the latest
// message for each. Every key is independent.
type Tracker struct {
	mu       sync.Mutex
	busy     map[int64]int
	messages map[int64]*entry
	gen      uint64
	closed   bool

	ttl time.Duration
	now func() time.Time
}

// New creates a Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		busy:     make(map[int64]int),
		messages: make(map[int64]*entry),
		ttl:      DefaultMessageTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Begin marks ids busy. Calls nest: a member stays busy until every Begin
// has a matching End.
func (t *Tracker) Begin(ids ...int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		if t.busy[id] == 0 {
			metrics.AddBusyMembers(1)
		}
		t.busy[id]++
	}
}

// End releases one Begin for each of ids.
func (t *Tracker) End(ids ...int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		n, ok := t.busy[id]
		if !ok {
			continue
		}
		if n <= 1 {
			delete(t.busy, id)
			metrics.AddBusyMembers(-1)
			continue
		}
		t.busy[id] = n - 1
	}
}

// IsBusy reports whether id has a submission in flight.
func (t *Tracker) IsBusy(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy[id] > 0
}

// Busy returns the busy member ids in ascending order.
func (t *Tracker) Busy() []int64 {
	t.mu.Lock()
	out := make([]int64, 0, len(t.busy))
	for id := range t.busy {
		out = append(out, id)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetMessage replaces id's message. It expires after the configured TTL
// unless replaced first.
func (t *Tracker) SetMessage(id int64, kind model.MessageKind, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	t.gen++
	gen := t.gen
	if old, ok := t.messages[id]; ok {
		old.timer.Stop()
	} else {
		metrics.AddTrackedMessages(1)
	}

	t.messages[id] = &entry{
		msg:   model.Message{Kind: kind, Text: text, At: t.now()},
		gen:   gen,
		timer: time.AfterFunc(t.ttl, func() { t.expire(id, gen) }),
	}
}

// expire drops id's message if it is still the one scheduled with gen.
func (t *Tracker) expire(id int64, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.messages[id]
	if !ok || e.gen != gen {
		return
	}
	delete(t.messages, id)
	metrics.AddTrackedMessages(-1)
}

// Message returns id's current message.
func (t *Tracker) Message(id int64) (model.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.messages[id]
	if !ok {
		return model.Message{}, false
	}
	return e.msg, true
}

// ClearMessage drops id's message immediately.
func (t *Tracker) ClearMessage(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.messages[id]; ok {
		e.timer.Stop()
		delete(t.messages, id)
		metrics.AddTrackedMessages(-1)
	}
}

// Close stops every pending timer and drops all state. Later SetMessage
// calls are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for _, e := range t.messages {
		e.timer.Stop()
	}
	metrics.AddTrackedMessages(-len(t.messages))
	metrics.AddBusyMembers(-len(t.busy))
	t.messages = make(map[int64]*entry)
	t.busy = make(map[int64]int)
}
