// Package presence mirrors the watched subject's presence record locally.
package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/metrics"
	"github.com/piperia-salata-create/Medy-App-sub001/staleness"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Presence event kinds reported to metrics.
const (
	EventChange    = "change"
	EventDelete    = "delete"
	EventHeartbeat = "heartbeat"
	EventResync    = "resync"
	EventDropped   = "dropped"
)

// Watcher holds one change-feed subscription for the current subject and keeps
// a mirror of its presence record.
//
// The mirror is fed from three sources: change-feed events, heartbeat results
// and explicit resyncs. Events for other subjects and events that arrive after
// the subscription was torn down are ignored.
type Watcher struct {
	store  types.PresenceStore
	logger types.Logger

	mu        sync.Mutex
	metrics   types.PresenceMetrics
	timeout   time.Duration
	onChange  func(types.PresenceState)
	subjectID string
	state     types.PresenceState
	unsub     types.Unsubscribe
	epoch     uint64
}

// NewWatcher creates a watcher with no subject.
//
// Parameters:
//   - store: Presence store providing reads and the change feed
//   - log: Logger; nil discards output
//
// Returns:
//   - *Watcher: Watcher ready for Start
func NewWatcher(store types.PresenceStore, log types.Logger) *Watcher {
	if log == nil {
		log = logger.NewNop()
	}

	return &Watcher{
		store:   store,
		logger:  log,
		metrics: metrics.NewNop(),
	}
}

// SetMetrics sets the collector receiving one event per mirror update.
func (w *Watcher) SetMetrics(m types.PresenceMetrics) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if m == nil {
		m = metrics.NewNop()
	}
	w.metrics = m
}

// SetOperationTimeout bounds each store read. Zero means no timeout.
func (w *Watcher) SetOperationTimeout(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.timeout = d
}

// OnChange registers the callback invoked with a copy of the mirror after
// every update that changed it. The callback runs without internal locks held.
func (w *Watcher) OnChange(fn func(types.PresenceState)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onChange = fn
}

// Start subscribes to the subject's change feed and resyncs the mirror.
//
// Starting with the subject already being watched is a no-op. Starting with a
// different subject tears down the previous subscription first, so at most one
// channel is ever open.
//
// Returns:
//   - error: ErrNoSubjectID for an empty subject, a wrapped ErrSubscribeFailed
//     when the feed cannot be opened, or the resync error
func (w *Watcher) Start(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return types.ErrNoSubjectID
	}

	w.mu.Lock()
	if w.subjectID == subjectID && w.unsub != nil {
		w.mu.Unlock()
		return nil
	}
	prev := w.unsub
	w.unsub = nil
	w.epoch++
	epoch := w.epoch
	w.subjectID = subjectID
	w.state = types.PresenceState{SubjectID: subjectID}
	w.mu.Unlock()

	if prev != nil {
		prev()
	}

	unsub, err := w.store.Subscribe(ctx, subjectID, func(change types.PresenceChange) {
		w.apply(epoch, change)
	})
	if err != nil {
		return fmt.Errorf("%w: presence feed for %s: %w", types.ErrSubscribeFailed, subjectID, err)
	}

	w.mu.Lock()
	if w.epoch != epoch {
		// Stopped or switched while subscribing.
		w.mu.Unlock()
		unsub()

		return nil
	}
	w.unsub = unsub
	w.mu.Unlock()

	w.logger.Debug("presence feed subscribed", "subject", subjectID)

	return w.Resync(ctx)
}

// Stop closes the subscription and resets the mirror.
func (w *Watcher) Stop() {
	w.mu.Lock()
	unsub := w.unsub
	w.unsub = nil
	w.epoch++
	w.subjectID = ""
	w.state = types.PresenceState{}
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// SubjectID returns the watched subject, or "" when stopped.
func (w *Watcher) SubjectID() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.subjectID
}

// CurrentState returns a copy of the mirror.
func (w *Watcher) CurrentState() types.PresenceState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// IsReachable reports whether the mirrored subject is on duty with a fresh timestamp.
func (w *Watcher) IsReachable(now time.Time, threshold time.Duration) bool {
	return staleness.IsEffectivelyOnDuty(w.CurrentState().Record(), now, threshold)
}

// ApplyChange merges a change-feed event into the mirror.
//
// Absent fields keep their current value. Events for another subject and
// events carrying no fields are dropped.
func (w *Watcher) ApplyChange(change types.PresenceChange) {
	w.mu.Lock()
	epoch := w.epoch
	w.mu.Unlock()

	w.apply(epoch, change)
}

// ApplyHeartbeat adopts the duty value and touch time from a heartbeat write.
func (w *Watcher) ApplyHeartbeat(res types.HeartbeatResult) {
	w.mu.Lock()
	if w.subjectID == "" || res.SubjectID != w.subjectID {
		m := w.metrics
		w.mu.Unlock()
		m.RecordPresenceEvent(EventDropped)

		return
	}

	next := w.state
	next.IsOnDuty = res.IsOnDuty
	if !res.TouchedAt.IsZero() {
		next.LastTouchedAt = res.TouchedAt
	}

	w.commitLocked(next, EventHeartbeat)
}

// Resync re-reads the declared duty flag. A missing record means off duty.
func (w *Watcher) Resync(ctx context.Context) error {
	w.mu.Lock()
	subjectID := w.subjectID
	epoch := w.epoch
	timeout := w.timeout
	w.mu.Unlock()

	if subjectID == "" {
		return types.ErrWatcherNotStarted
	}

	callCtx, cancel := withTimeout(ctx, timeout)
	duty, err := w.store.ReadDuty(callCtx, subjectID)
	cancel()
	if err != nil {
		return fmt.Errorf("resync presence for %s: %w", subjectID, err)
	}

	w.mu.Lock()
	if w.epoch != epoch {
		w.mu.Unlock()
		return nil
	}

	next := w.state
	if duty == nil {
		next.IsOnDuty = false
		next.LastTouchedAt = time.Time{}
	} else {
		next.IsOnDuty = duty.IsOnDuty
	}

	w.commitLocked(next, EventResync)

	return nil
}

func (w *Watcher) apply(epoch uint64, change types.PresenceChange) {
	w.mu.Lock()
	if w.epoch != epoch || w.subjectID == "" || change.SubjectID != w.subjectID || change.IsEmpty() {
		m := w.metrics
		w.mu.Unlock()
		m.RecordPresenceEvent(EventDropped)
		w.logger.Debug("presence event dropped", "subject", change.SubjectID)

		return
	}

	next := w.state
	kind := EventChange
	if change.Deleted {
		kind = EventDelete
		next.IsOnDuty = false
		next.LastTouchedAt = time.Time{}
	} else {
		if change.IsOnDuty != nil {
			next.IsOnDuty = *change.IsOnDuty
		}
		if change.LastTouchedAt != nil {
			next.LastTouchedAt = *change.LastTouchedAt
		}
	}

	w.commitLocked(next, kind)
}

// commitLocked stores next, releases w.mu and notifies if the mirror changed.
func (w *Watcher) commitLocked(next types.PresenceState, kind string) {
	changed := next.IsOnDuty != w.state.IsOnDuty || !next.LastTouchedAt.Equal(w.state.LastTouchedAt)
	w.state = next
	m := w.metrics
	cb := w.onChange
	w.mu.Unlock()

	m.RecordPresenceEvent(kind)
	if changed && cb != nil {
		cb(next)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}
