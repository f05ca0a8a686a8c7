// Package requests keeps the viewer's list of incoming requests in sync with the request feed.
package requests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/debounce"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/metrics"
	"github.com/piperia-salata-create/Medy-App-sub001/reconcile"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// RefresherName labels the tracker's coalesced triggers in metrics.
const RefresherName = "requests"

// Tracker owns the reconciled request list for one subject.
//
// Every feed signal schedules a full refetch through a debounce.Refresher; the
// refetched rows are reconciled against the previous list so unchanged entries
// keep their identity. Passes never overlap, and a pass started for a previous
// subject is discarded. After each pass a timer is armed at the earliest
// future expiry so expired rows drop out without any feed event.
type Tracker struct {
	feed      types.RequestFeed
	clock     types.Clock
	logger    types.Logger
	refresher *debounce.Refresher

	passMu sync.Mutex

	mu        sync.Mutex
	metrics   types.MetricsCollector
	timeout   time.Duration
	onChange  func(subjectID string, list []*types.Recipient)
	onFailed  func(subjectID string, err error)
	subjectID string
	list      []*types.Recipient
	unsub     types.Unsubscribe
	epoch     uint64
	ctx       context.Context //nolint:containedctx // lifetime of the subscription
	expiry    *time.Timer
}

// NewTracker creates a tracker with no subject.
//
// Parameters:
//   - feed: Request feed providing rows and change signals
//   - clock: Time source for eligibility checks
//   - delay: Debounce window for feed signals (0 = immediate with coalescing)
//   - log: Logger; nil discards output
//
// Returns:
//   - *Tracker: Tracker ready for Start
func NewTracker(feed types.RequestFeed, clock types.Clock, delay time.Duration, log types.Logger) *Tracker {
	if log == nil {
		log = logger.NewNop()
	}

	t := &Tracker{
		feed:      feed,
		clock:     clock,
		logger:    log,
		refresher: debounce.New(delay),
		metrics:   metrics.NewNop(),
	}
	t.refresher.OnCoalesce(func() {
		t.mu.Lock()
		m := t.metrics
		t.mu.Unlock()
		m.RecordDebounceCoalesced(RefresherName)
	})

	return t
}

// SetMetrics sets the collector for pass and debounce measurements.
func (t *Tracker) SetMetrics(m types.MetricsCollector) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m == nil {
		m = metrics.NewNop()
	}
	t.metrics = m
}

// SetOperationTimeout bounds each fetch. Zero means no timeout.
func (t *Tracker) SetOperationTimeout(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.timeout = d
}

// OnChange registers the callback invoked with the new list after every pass
// that changed it. The list must be treated as read-only.
func (t *Tracker) OnChange(fn func(subjectID string, list []*types.Recipient)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onChange = fn
}

// OnFetchFailed registers the callback invoked when the initial pass or a
// signal-driven pass fails. Explicit FetchAndReconcile calls report through
// their return value instead.
func (t *Tracker) OnFetchFailed(fn func(subjectID string, err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onFailed = fn
}

// Start subscribes to the subject's feed and performs an initial pass.
//
// Starting with the current subject is a no-op; a different subject replaces
// the previous subscription and list. A failing initial fetch is logged and
// reported through OnFetchFailed.
//
// Parameters:
//   - ctx: Lifetime of the subscription and of the passes it schedules
//   - subjectID: Subject whose incoming requests are tracked
//
// Returns:
//   - error: ErrNoSubjectID for an empty subject, or a wrapped ErrSubscribeFailed
func (t *Tracker) Start(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return types.ErrNoSubjectID
	}

	t.mu.Lock()
	if t.subjectID == subjectID && t.unsub != nil {
		t.mu.Unlock()
		return nil
	}
	prev := t.resetLocked()
	t.subjectID = subjectID
	t.ctx = ctx
	epoch := t.epoch
	t.mu.Unlock()

	if prev != nil {
		prev()
	}

	unsub, err := t.feed.Subscribe(ctx, subjectID, func() { t.signal(epoch) })
	if err != nil {
		return fmt.Errorf("%w: request feed for %s: %w", types.ErrSubscribeFailed, subjectID, err)
	}

	t.mu.Lock()
	if t.epoch != epoch {
		t.mu.Unlock()
		unsub()

		return nil
	}
	t.unsub = unsub
	t.mu.Unlock()

	if err := t.pass(ctx, epoch); err != nil {
		t.logger.Warn("initial request fetch failed", "subject", subjectID, "error", err)
		t.fetchFailed(subjectID, err)
	}

	return nil
}

// Stop closes the subscription, cancels pending passes and clears the list.
func (t *Tracker) Stop() {
	t.mu.Lock()
	unsub := t.resetLocked()
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Close stops the tracker and rejects any further scheduling.
func (t *Tracker) Close() {
	t.Stop()
	t.refresher.Close()
}

// Schedule requests a debounced pass, as a feed signal would.
//
// Returns:
//   - bool: false if the tracker has no subject or was closed
func (t *Tracker) Schedule() bool {
	t.mu.Lock()
	epoch := t.epoch
	active := t.subjectID != ""
	t.mu.Unlock()

	if !active {
		return false
	}

	return t.schedule(epoch)
}

// FetchAndReconcile runs one pass immediately.
//
// Returns:
//   - error: ErrTrackerNotStarted without a subject, or the wrapped fetch error
func (t *Tracker) FetchAndReconcile(ctx context.Context) error {
	t.mu.Lock()
	epoch := t.epoch
	t.mu.Unlock()

	return t.pass(ctx, epoch)
}

// List returns the current reconciled list. The slice is replaced, never
// modified, by later passes; callers must not modify it either.
func (t *Tracker) List() []*types.Recipient {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.list
}

// SubjectID returns the tracked subject, or "" when stopped.
func (t *Tracker) SubjectID() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.subjectID
}

func (t *Tracker) signal(epoch uint64) {
	t.mu.Lock()
	current := t.epoch == epoch
	t.mu.Unlock()

	if current {
		t.schedule(epoch)
	}
}

func (t *Tracker) schedule(epoch uint64) bool {
	return t.refresher.Schedule(func() {
		t.mu.Lock()
		ctx := t.ctx
		subjectID := t.subjectID
		t.mu.Unlock()
		if ctx == nil {
			return
		}

		if err := t.pass(ctx, epoch); err != nil {
			t.logger.Warn("request refetch failed", "error", err)
			t.fetchFailed(subjectID, err)
		}
	})
}

func (t *Tracker) fetchFailed(subjectID string, err error) {
	if errors.Is(err, types.ErrTrackerNotStarted) {
		return
	}

	t.mu.Lock()
	cb := t.onFailed
	t.mu.Unlock()

	if cb != nil {
		cb(subjectID, err)
	}
}

// pass fetches, reconciles and publishes for the activation identified by epoch.
func (t *Tracker) pass(ctx context.Context, epoch uint64) error {
	t.passMu.Lock()
	defer t.passMu.Unlock()

	t.mu.Lock()
	if t.epoch != epoch || t.subjectID == "" {
		t.mu.Unlock()
		return types.ErrTrackerNotStarted
	}
	subjectID := t.subjectID
	timeout := t.timeout
	m := t.metrics
	t.mu.Unlock()

	started := time.Now()
	now := t.clock.Now()

	callCtx, cancel := withTimeout(ctx, timeout)
	rows, err := t.feed.FetchCandidates(callCtx, subjectID, now)
	cancel()
	if err != nil {
		m.RecordRefetchFailure()
		return fmt.Errorf("fetch requests for %s: %w", subjectID, err)
	}

	t.mu.Lock()
	if t.epoch != epoch {
		t.mu.Unlock()
		t.logger.Debug("stale request fetch discarded", "subject", subjectID)

		return nil
	}

	res := reconcile.Reconcile(t.list, rows, subjectID, now)
	t.list = res.List
	t.armExpiryLocked(epoch, now)
	cb := t.onChange
	t.mu.Unlock()

	m.RecordReconcile(time.Since(started).Seconds(), len(res.List), res.Changed)
	if res.Changed {
		t.logger.Debug("request list changed", "subject", subjectID, "size", len(res.List))
		if cb != nil {
			cb(subjectID, res.List)
		}
	}

	return nil
}

// armExpiryLocked schedules a pass at the earliest future expiry in the list.
func (t *Tracker) armExpiryLocked(epoch uint64, now time.Time) {
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}

	next := reconcile.NextExpiry(t.list, now)
	if next.IsZero() {
		return
	}

	t.expiry = time.AfterFunc(next.Sub(now), func() { t.signal(epoch) })
}

// resetLocked tears down the current activation and returns the subscription to release.
func (t *Tracker) resetLocked() types.Unsubscribe {
	unsub := t.unsub
	t.unsub = nil
	t.epoch++
	t.subjectID = ""
	t.list = nil
	t.ctx = nil
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
	t.refresher.Cancel()

	return unsub
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}
