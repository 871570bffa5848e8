package index

import (
	"sync"
	"time"

	"github.com/fwojciec/docdex"
)

// Tracker defaults.
const (
	// DefaultRetention keeps terminal records visible to pollers
	// briefly before pruning.
	DefaultRetention = 5 * time.Minute
	// notifyProgressStep throttles listener notifications to one per 5%
	// of progress, plus every terminal transition.
	notifyProgressStep = 0.05
)

// Tracker maintains the per-operation status state machine:
// indexing -> {complete | failed | cancelled}, terminal states final.
// Mutations on unknown ids or terminal records are ignored; the tracker
// records reported failures but never produces its own.
type Tracker struct {
	mu        sync.Mutex
	records   map[string]*trackedRecord
	listeners []docdex.StatusListener
	retention time.Duration
	now       func() time.Time
}

type trackedRecord struct {
	rec docdex.StatusRecord

	// completedAt is set on the terminal transition; records older than
	// the retention window are pruned on poll.
	completedAt time.Time

	// lastNotified is the progress value at the last listener burst.
	lastNotified float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithRetention overrides how long terminal records stay pollable.
func WithRetention(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.retention = d }
}

// WithClock overrides the tracker's time source. For tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		records:   make(map[string]*trackedRecord),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddStatusListener registers a listener invoked synchronously on
// throttled mutations: at most one burst per 5% of progress, plus every
// terminal transition.
func (t *Tracker) AddStatusListener(fn docdex.StatusListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// StartIndexing creates the record for a new operation in the indexing
// state and notifies listeners.
func (t *Tracker) StartIndexing(id, url, title string) {
	t.mu.Lock()
	tr := &trackedRecord{
		rec: docdex.StatusRecord{
			ID:          id,
			URL:         url,
			Title:       title,
			Status:      docdex.StatusIndexing,
			Description: "Starting crawl",
		},
		lastNotified: -1, // first update always notifies
	}
	t.records[id] = tr
	snapshot, listeners := tr.rec, t.listeners
	tr.lastNotified = 0
	t.mu.Unlock()

	notify(listeners, snapshot)
}

// UpdateProgress mutates progress and description while indexing.
func (t *Tracker) UpdateProgress(id string, progress float64, description string) {
	t.mutate(id, func(rec *docdex.StatusRecord) {
		rec.Progress = clamp01(progress)
		rec.Description = description
	})
}

// UpdateStats merges partial counters into the record while indexing.
func (t *Tracker) UpdateStats(id string, stats docdex.StatusStats) {
	t.mutate(id, func(rec *docdex.StatusRecord) {
		if stats.PagesFound != nil {
			rec.PagesFound = *stats.PagesFound
		}
		if stats.PagesProcessed != nil {
			rec.PagesProcessed = *stats.PagesProcessed
		}
		if stats.ChunksCreated != nil {
			rec.ChunksCreated = *stats.ChunksCreated
		}
	})
}

// CompleteIndexing moves the operation to the complete terminal state.
func (t *Tracker) CompleteIndexing(id string) {
	t.terminal(id, docdex.StatusComplete, "")
}

// FailIndexing moves the operation to the failed terminal state with a
// sanitized message.
func (t *Tracker) FailIndexing(id, message string) {
	t.terminal(id, docdex.StatusFailed, message)
}

// CancelIndexing moves the operation to the cancelled terminal state.
// Cancellation is a normal outcome, not an error.
func (t *Tracker) CancelIndexing(id string) {
	t.terminal(id, docdex.StatusCancelled, "")
}

// GetStatus returns a snapshot of one record.
func (t *Tracker) GetStatus(id string) (docdex.StatusRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.records[id]
	if !ok {
		return docdex.StatusRecord{}, false
	}
	return tr.rec, true
}

// GetActiveStatuses returns all non-terminal records plus terminal ones
// younger than the retention window, pruning older terminal records as
// a side effect.
func (t *Tracker) GetActiveStatuses() []docdex.StatusRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make([]docdex.StatusRecord, 0, len(t.records))
	for id, tr := range t.records {
		if tr.rec.Status.Terminal() && now.Sub(tr.completedAt) > t.retention {
			delete(t.records, id)
			continue
		}
		out = append(out, tr.rec)
	}
	return out
}

// mutate applies fn to a live record and notifies listeners when the
// progress throttle allows.
func (t *Tracker) mutate(id string, fn func(*docdex.StatusRecord)) {
	t.mu.Lock()
	tr, ok := t.records[id]
	if !ok || tr.rec.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	fn(&tr.rec)

	var (
		snapshot  docdex.StatusRecord
		listeners []docdex.StatusListener
	)
	if tr.rec.Progress-tr.lastNotified >= notifyProgressStep {
		tr.lastNotified = tr.rec.Progress
		snapshot, listeners = tr.rec, t.listeners
	}
	t.mu.Unlock()

	notify(listeners, snapshot)
}

// terminal moves a record into a terminal state. Terminal transitions
// always notify; the final notification before pruning is the terminal
// one.
func (t *Tracker) terminal(id string, status docdex.Status, message string) {
	t.mu.Lock()
	tr, ok := t.records[id]
	if !ok || tr.rec.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	tr.rec.Status = status
	tr.rec.ErrorMessage = message
	if status == docdex.StatusComplete {
		tr.rec.Progress = 1
	}
	tr.completedAt = t.now()
	snapshot, listeners := tr.rec, t.listeners
	t.mu.Unlock()

	notify(listeners, snapshot)
}

// notify invokes listeners outside the tracker lock. A panicking
// listener is contained so a notification failure never affects crawl
// state.
func notify(listeners []docdex.StatusListener, rec docdex.StatusRecord) {
	for _, fn := range listeners {
		func() {
			defer func() { _ = recover() }()
			fn(rec)
		}()
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
