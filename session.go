package medy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/debounce"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/heartbeat"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/hooks"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/metrics"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/presence"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/requests"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Refresher names used to label coalesced calls in metrics.
const (
	resyncRefresherName        = "resync"
	presenceRetryRefresherName = "presence_retry"
	requestRetryRefresherName  = "request_retry"
)

// Session owns the presence and request machinery for one signed-in subject.
//
// Session is the main entry point of the library. It handles:
//   - Mirroring the subject's presence record from the store's change feed
//   - Emitting conditional heartbeats while the mirrored duty flag is on
//   - Keeping a reconciled list of incoming requests
//   - Refreshing both when the host returns to the foreground or reconnects
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - Hooks run in background goroutines and never block the session
//
// Lifecycle:
//   - Create with NewSession()
//   - Call Open() with the subject ID after sign-in
//   - Call SwitchSubject() when the signed-in identity changes
//   - Call Close() on sign-out; a closed session cannot be reopened
type Session struct {
	id    string
	cfg   Config
	store PresenceStore
	feed  RequestFeed
	env   Environment

	hooks   Hooks
	metrics MetricsCollector
	logger  Logger

	emitter *heartbeat.Emitter
	watcher *presence.Watcher
	tracker *requests.Tracker
	resync  *debounce.Refresher

	// Failed reads are retried once per heartbeat interval until they succeed.
	presenceRetry *debounce.Refresher
	requestRetry  *debounce.Refresher

	// syncMu serializes emitter start/stop decisions.
	syncMu sync.Mutex

	mu        sync.Mutex
	state     State
	subjectID string
	opened    bool
	onDuty    bool
	envUnsubs []Unsubscribe
	ctx       context.Context //nolint:containedctx // session lifetime
	cancel    context.CancelFunc
}

// NewSession creates a new Session with the provided configuration.
//
// Returns a concrete *Session struct following the "accept interfaces, return structs" principle.
//
// Parameters:
//   - cfg: Timing configuration; zero fields are filled with defaults
//   - store: Presence store for duty reads, heartbeats and the presence feed
//   - feed: Request feed for recipient rows and change signals
//   - env: Clock and foreground/online signals
//   - opts: Optional configuration (hooks, metrics, logger)
//
// Returns:
//   - *Session: Idle session; call Open to start
//   - error: Validation error if a dependency is missing or the configuration is invalid
//
// Example:
//
//	store, _ := natskv.Open(ctx, js, natskv.DefaultBuckets())
//	sess, err := medy.NewSession(medy.DefaultConfig(), store, store.Feed(), environment.System())
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	err = sess.Open(ctx, pharmacyID)
func NewSession(cfg Config, store PresenceStore, feed RequestFeed, env Environment, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, ErrPresenceStoreRequired
	}
	if feed == nil {
		return nil, ErrRequestFeedRequired
	}
	if env == nil {
		return nil, ErrEnvironmentRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	options := &sessionOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logger.NewNop()
	}

	cfg.ValidateWithWarnings(loggerInstance)

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		store:   store,
		feed:    feed,
		env:     env,
		hooks:   hooks.Fill(options.hooks),
		metrics: metricsCollector,
		logger:  loggerInstance,
		state:   StateIdle,
	}

	s.emitter = heartbeat.New(store, env, cfg.HeartbeatInterval, loggerInstance)
	s.emitter.SetMetrics(metricsCollector)
	s.emitter.SetOperationTimeout(cfg.OperationTimeout)
	s.emitter.OnResult(s.handleHeartbeat)
	s.emitter.OnDenied(s.deny)

	s.watcher = presence.NewWatcher(store, loggerInstance)
	s.watcher.SetMetrics(metricsCollector)
	s.watcher.SetOperationTimeout(cfg.OperationTimeout)
	s.watcher.OnChange(s.handlePresence)

	s.tracker = requests.NewTracker(feed, env, cfg.RequestDebounce, loggerInstance)
	s.tracker.SetMetrics(metricsCollector)
	s.tracker.SetOperationTimeout(cfg.OperationTimeout)
	s.tracker.OnChange(s.handleRequests)
	s.tracker.OnFetchFailed(func(subjectID string, _ error) { s.retryRequests(subjectID) })

	s.resync = debounce.New(cfg.ConnectionDebounce)
	s.resync.OnCoalesce(func() {
		metricsCollector.RecordDebounceCoalesced(resyncRefresherName)
	})

	s.presenceRetry = debounce.New(cfg.HeartbeatInterval)
	s.presenceRetry.OnCoalesce(func() {
		metricsCollector.RecordDebounceCoalesced(presenceRetryRefresherName)
	})

	s.requestRetry = debounce.New(cfg.HeartbeatInterval)
	s.requestRetry.OnCoalesce(func() {
		metricsCollector.RecordDebounceCoalesced(requestRetryRefresherName)
	})

	return s, nil
}

// Open starts watching the subject's presence and requests.
//
// The heartbeat starts as soon as the mirrored presence record says the
// subject is on duty. A permission failure while subscribing moves the
// session to StateDenied and is also returned.
//
// Parameters:
//   - ctx: Context carrying request-scoped values; its cancellation does not
//     end the session, Close does
//   - subjectID: Signed-in subject (the pharmacy ID)
//
// Returns:
//   - error: ErrNoSubjectID, ErrAlreadyOpen, ErrSessionClosed, or a subscription error
func (s *Session) Open(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return ErrNoSubjectID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.opened {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.opened = true
	s.subjectID = subjectID
	s.onDuty = false
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	s.logger.Info("opening session", "session", s.id, "subject", subjectID)

	if err := s.attach(subjectID); err != nil {
		if !IsPermissionDenied(err) {
			s.mu.Lock()
			s.opened = false
			s.subjectID = ""
			s.cancel()
			s.mu.Unlock()
		}

		return err
	}

	return nil
}

// SwitchSubject moves the session to another subject.
//
// Everything bound to the previous subject is torn down before the new
// subject's channels are opened, so a denied or stale subject never leaks
// into the new one. Switching to the current subject is a no-op unless the
// session was denied.
//
// Parameters:
//   - ctx: Used only for early cancellation
//   - subjectID: New signed-in subject
//
// Returns:
//   - error: ErrNoSubjectID, ErrNotOpen, ErrSessionClosed, or a subscription error
func (s *Session) SwitchSubject(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return ErrNoSubjectID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.opened {
		s.mu.Unlock()
		return ErrNotOpen
	}
	if s.subjectID == subjectID && s.state != StateDenied {
		s.mu.Unlock()
		return nil
	}
	prev := s.subjectID
	from := s.state
	s.subjectID = subjectID
	s.onDuty = false
	s.state = StateIdle
	unsubs := s.envUnsubs
	s.envUnsubs = nil
	s.mu.Unlock()

	s.detach(unsubs)
	if from != StateIdle {
		s.notifyTransition(from, StateIdle)
	}

	s.logger.Info("switching subject", "session", s.id, "from", prev, "to", subjectID)

	return s.attach(subjectID)
}

// Close tears down all subscriptions, timers and the heartbeat.
//
// Close is idempotent. Hooks already dispatched may still be running when
// Close returns.
//
// Returns:
//   - error: Always nil; kept for io.Closer compatibility
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	from := s.state
	s.state = StateClosed
	s.opened = false
	unsubs := s.envUnsubs
	s.envUnsubs = nil
	cancel := s.cancel
	s.mu.Unlock()

	s.detach(unsubs)
	s.tracker.Close()
	s.resync.Close()
	s.presenceRetry.Close()
	s.requestRetry.Close()

	s.notifyTransition(from, StateClosed)
	if cancel != nil {
		cancel()
	}

	s.logger.Info("session closed", "session", s.id)

	return nil
}

// ID returns the session's unique identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// SubjectID returns the current subject, or "" before Open.
func (s *Session) SubjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.subjectID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Presence returns a copy of the mirrored presence record.
func (s *Session) Presence() PresenceState {
	return s.watcher.CurrentState()
}

// IsReachable reports whether the subject is on duty with a heartbeat younger
// than the staleness threshold.
func (s *Session) IsReachable() bool {
	return s.watcher.IsReachable(s.env.Now(), s.cfg.StalenessThreshold)
}

// Requests returns the current reconciled request list. Treat it as read-only.
func (s *Session) Requests() []*Recipient {
	return s.tracker.List()
}

// RefreshRequests refetches and reconciles the request list immediately.
//
// Parameters:
//   - ctx: Bounds the fetch
//
// Returns:
//   - error: ErrNotOpen, ErrSessionClosed, or the fetch error
func (s *Session) RefreshRequests(ctx context.Context) error {
	s.mu.Lock()
	state, opened := s.state, s.opened
	s.mu.Unlock()

	switch {
	case state == StateClosed:
		return ErrSessionClosed
	case !opened || state == StateDenied:
		return ErrNotOpen
	}

	return s.tracker.FetchAndReconcile(ctx)
}

// RefreshPresence re-reads the subject's duty flag immediately.
//
// The heartbeat starts or stops to match the result. A permission failure
// moves the session to StateDenied.
//
// Parameters:
//   - ctx: Bounds the read
//
// Returns:
//   - error: ErrNotOpen, ErrSessionClosed, or the read error
func (s *Session) RefreshPresence(ctx context.Context) error {
	s.mu.Lock()
	state, opened := s.state, s.opened
	s.mu.Unlock()

	switch {
	case state == StateClosed:
		return ErrSessionClosed
	case !opened || state == StateDenied:
		return ErrNotOpen
	}

	err := s.watcher.Resync(ctx)
	if IsPermissionDenied(err) {
		s.deny(err)
	}

	return err
}

// attach opens every channel for subjectID. It must run without s.mu held.
func (s *Session) attach(subjectID string) error {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.emitter.SetSubjectID(subjectID)

	if err := s.watcher.Start(ctx, subjectID); err != nil {
		if fatal := s.handleAttachError(err, "presence"); fatal != nil {
			return fatal
		}
		s.retryPresence(subjectID)
	}

	if err := s.tracker.Start(ctx, subjectID); err != nil {
		if fatal := s.handleAttachError(err, "requests"); fatal != nil {
			if !IsPermissionDenied(fatal) {
				s.detach(nil)
				s.setState(StateActive, StateIdle)
			}

			return fatal
		}
	}

	unsubs := []Unsubscribe{
		s.env.OnForegroundChange(s.handleWake),
		s.env.OnOnlineChange(s.handleWake),
	}

	s.mu.Lock()
	if s.subjectID != subjectID || s.state == StateClosed || s.state == StateDenied {
		s.mu.Unlock()
		for _, unsub := range unsubs {
			unsub()
		}

		return nil
	}
	s.envUnsubs = unsubs
	s.mu.Unlock()

	return nil
}

// handleAttachError returns the error that should abort attach, or nil when
// the channel is up and only the initial read failed.
func (s *Session) handleAttachError(err error, channel string) error {
	if IsPermissionDenied(err) {
		s.deny(err)
		return err
	}
	if errors.Is(err, ErrSubscribeFailed) || errors.Is(err, ErrNoSubjectID) {
		s.logger.Error("subscription failed", "session", s.id, "channel", channel, "error", err)
		return err
	}

	s.logger.Warn("initial read failed", "session", s.id, "channel", channel, "error", err)

	return nil
}

// detach closes every channel opened by attach.
func (s *Session) detach(envUnsubs []Unsubscribe) {
	for _, unsub := range envUnsubs {
		unsub()
	}

	s.resync.Cancel()
	s.presenceRetry.Cancel()
	s.requestRetry.Cancel()
	s.syncMu.Lock()
	_ = s.emitter.Stop()
	s.syncMu.Unlock()
	s.watcher.Stop()
	s.tracker.Stop()
}

// handlePresence reacts to a mirror update: the emitter runs exactly while
// the mirrored duty flag is on.
func (s *Session) handlePresence(st PresenceState) {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateDenied || st.SubjectID != s.subjectID {
		s.mu.Unlock()
		return
	}
	changed := s.onDuty != st.IsOnDuty
	s.onDuty = st.IsOnDuty
	s.mu.Unlock()

	s.syncEmitter()

	if changed {
		s.logger.Info("duty changed", "session", s.id, "subject", st.SubjectID, "onDuty", st.IsOnDuty)
		s.runHook("duty changed", func(ctx context.Context) error {
			return s.hooks.OnDutyChanged(ctx, st.SubjectID, st.IsOnDuty)
		})
	}
}

// syncEmitter starts or stops the emitter to match the mirrored duty flag.
func (s *Session) syncEmitter() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	if s.state == StateClosed || s.state == StateDenied {
		s.mu.Unlock()
		return
	}
	onDuty := s.onDuty
	ctx := s.ctx
	from := s.state
	s.mu.Unlock()

	switch {
	case onDuty && !s.emitter.IsActive():
		if err := s.emitter.Start(ctx); err != nil {
			s.logger.Warn("heartbeat start failed", "session", s.id, "error", err)
			return
		}
		s.setState(from, StateActive)
	case !onDuty && s.emitter.IsActive():
		_ = s.emitter.Stop()
		s.setState(from, StateIdle)
	}
}

// setState moves from -> to unless another transition happened meanwhile.
func (s *Session) setState(from, to State) {
	s.mu.Lock()
	if s.state != from || from == to {
		s.mu.Unlock()
		return
	}
	s.state = to
	s.mu.Unlock()

	s.notifyTransition(from, to)
}

func (s *Session) handleHeartbeat(res HeartbeatResult) {
	s.watcher.ApplyHeartbeat(res)
}

func (s *Session) handleRequests(subjectID string, list []*Recipient) {
	s.logger.Debug("requests changed", "session", s.id, "subject", subjectID, "count", len(list))
	s.runHook("requests changed", func(ctx context.Context) error {
		return s.hooks.OnRequestsChanged(ctx, subjectID, list)
	})
}

// handleWake runs on foreground and online transitions.
func (s *Session) handleWake(up bool) {
	if !up {
		return
	}

	s.mu.Lock()
	if s.state == StateClosed || s.state == StateDenied || !s.opened {
		s.mu.Unlock()
		return
	}
	subjectID := s.subjectID
	s.mu.Unlock()

	s.tracker.Schedule()

	// An active emitter re-reads duty itself on wake.
	if s.emitter.IsActive() {
		return
	}

	s.resync.Schedule(func() {
		if !s.resyncPresence() {
			s.retryPresence(subjectID)
		}
	})
}

// resyncPresence re-reads duty into the mirror. It reports false only for a
// failure worth retrying.
func (s *Session) resyncPresence() bool {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	err := s.watcher.Resync(ctx)
	switch {
	case err == nil, errors.Is(err, types.ErrWatcherNotStarted):
		return true
	case IsPermissionDenied(err):
		s.deny(err)
		return true
	default:
		s.logger.Warn("presence resync failed", "session", s.id, "error", err)
		return false
	}
}

// retryPresence schedules a duty re-read one heartbeat interval from now and
// keeps rescheduling until a read succeeds or the subject changes.
func (s *Session) retryPresence(subjectID string) {
	s.presenceRetry.Schedule(func() {
		if !s.isAttached(subjectID) {
			return
		}
		if !s.resyncPresence() && s.isAttached(subjectID) {
			s.retryPresence(subjectID)
		}
	})
}

// retryRequests does the same for the request list.
func (s *Session) retryRequests(subjectID string) {
	s.requestRetry.Schedule(func() {
		if !s.isAttached(subjectID) {
			return
		}

		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		err := s.tracker.FetchAndReconcile(ctx)
		switch {
		case err == nil, errors.Is(err, types.ErrTrackerNotStarted):
		case IsPermissionDenied(err):
			s.deny(err)
		default:
			s.logger.Warn("request refresh failed", "session", s.id, "error", err)
			if s.isAttached(subjectID) {
				s.retryRequests(subjectID)
			}
		}
	})
}

// isAttached reports whether subjectID is still the live subject.
func (s *Session) isAttached(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.opened && s.subjectID == subjectID && s.state != StateClosed && s.state != StateDenied
}

// deny moves the session to StateDenied for the current subject.
func (s *Session) deny(err error) {
	s.mu.Lock()
	if s.state == StateDenied || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = StateDenied
	subjectID := s.subjectID
	unsubs := s.envUnsubs
	s.envUnsubs = nil
	s.mu.Unlock()

	s.logger.Error("permission denied, session halted", "session", s.id, "subject", subjectID, "error", err)

	s.detach(unsubs)

	s.notifyTransition(from, StateDenied)
	s.runHook("error", func(ctx context.Context) error {
		return s.hooks.OnError(ctx, err)
	})
}

// notifyTransition logs, records and dispatches a state change.
func (s *Session) notifyTransition(from, to State) {
	s.logger.Info("state transition",
		"from", from.String(),
		"to", to.String(),
		"session", s.id,
	)

	s.runHook("state change", func(ctx context.Context) error {
		return s.hooks.OnStateChanged(ctx, from, to)
	})

	// Record metrics (always non-nil, defaults to nopMetrics)
	s.metrics.RecordStateTransition(from, to)
}

// runHook runs fn in the background with the session context.
func (s *Session) runHook(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		if err := fn(ctx); err != nil {
			s.logger.Error("hook error", "hook", name, "session", s.id, "error", err)
		}
	}()
}
