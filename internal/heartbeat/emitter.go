package heartbeat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/metrics"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Outcome describes what a single tick did.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeConditionalNoop   Outcome = "conditional_noop"
	OutcomeFailure           Outcome = "failure"
	OutcomeDenied            Outcome = "denied"
	OutcomeSkippedInFlight   Outcome = "skipped_in_flight"
	OutcomeSkippedBackground Outcome = "skipped_background"
	OutcomeSkippedOffline    Outcome = "skipped_offline"
	OutcomeSkippedOffDuty    Outcome = "skipped_off_duty"
	OutcomeStopped           Outcome = "stopped"
)

// Skipped reports whether the tick returned without touching the store.
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeSkippedInFlight, OutcomeSkippedBackground, OutcomeSkippedOffline, OutcomeSkippedOffDuty, OutcomeStopped:
		return true
	default:
		return false
	}
}

// Emitter asserts liveness for one subject at a fixed interval.
//
// All methods are safe for concurrent use. Callbacks run on the emitter's
// goroutine without any internal lock held, so they may call Stop.
type Emitter struct {
	store    types.PresenceStore
	env      types.Environment
	interval time.Duration
	logger   types.Logger

	mu        sync.Mutex
	subjectID string
	metrics   types.HeartbeatMetrics
	timeout   time.Duration
	onResult  func(types.HeartbeatResult)
	onDenied  func(error)

	active   bool
	onDuty   bool
	inFlight bool
	epoch    uint64
	ticker   *time.Ticker
	stopCh   chan struct{}
	wakeCh   chan struct{}
	unsubs   []types.Unsubscribe
}

// New creates an idle emitter.
//
// Parameters:
//   - store: Presence store receiving the conditional writes
//   - env: Clock and foreground/online signals
//   - interval: Tick period (typically staleness.HeartbeatInterval)
//   - log: Logger; nil discards output
//
// Returns:
//   - *Emitter: Idle emitter; call SetSubjectID and Start to begin
func New(store types.PresenceStore, env types.Environment, interval time.Duration, log types.Logger) *Emitter {
	if log == nil {
		log = logger.NewNop()
	}

	return &Emitter{
		store:    store,
		env:      env,
		interval: interval,
		logger:   log,
		metrics:  metrics.NewNop(),
	}
}

// SetSubjectID binds the emitter to a subject. Must be called before Start.
func (e *Emitter) SetSubjectID(subjectID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subjectID = subjectID
}

// SetMetrics sets the collector that receives one outcome per tick.
func (e *Emitter) SetMetrics(m types.HeartbeatMetrics) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m == nil {
		m = metrics.NewNop()
	}
	e.metrics = m
}

// SetOperationTimeout bounds each store call. Zero means no timeout.
func (e *Emitter) SetOperationTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timeout = d
}

// OnResult registers the callback that receives every completed write.
func (e *Emitter) OnResult(fn func(types.HeartbeatResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onResult = fn
}

// OnDenied registers the callback invoked once when the store rejects the subject.
func (e *Emitter) OnDenied(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onDenied = fn
}

// Start enters the active state.
//
// The first tick runs immediately on the emitter goroutine, then one tick per
// interval until Stop is called or ctx is cancelled. The emitter assumes the
// subject is on duty until a write or re-read says otherwise.
//
// Returns:
//   - error: ErrNoSubjectID if no subject is bound, ErrEmitterAlreadyStarted if active
func (e *Emitter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active {
		return types.ErrEmitterAlreadyStarted
	}

	if e.subjectID == "" {
		return types.ErrNoSubjectID
	}

	e.active = true
	e.onDuty = true
	e.epoch++
	e.ticker = time.NewTicker(e.interval)
	e.stopCh = make(chan struct{})
	e.wakeCh = make(chan struct{}, 1)

	wakeCh := e.wakeCh
	wake := func(up bool) {
		if !up {
			return
		}
		select {
		case wakeCh <- struct{}{}:
		default:
		}
	}
	e.unsubs = []types.Unsubscribe{
		e.env.OnForegroundChange(wake),
		e.env.OnOnlineChange(wake),
	}

	go e.run(ctx, e.epoch, e.ticker, e.stopCh, wakeCh)

	return nil
}

// Stop returns the emitter to idle.
//
// Stop does not wait for a write in flight: its response is discarded when it
// arrives, and the in-flight guard stays set until then.
//
// Returns:
//   - error: ErrEmitterNotStarted if the emitter is idle
func (e *Emitter) Stop() error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return types.ErrEmitterNotStarted
	}
	unsubs := e.stopLocked()
	e.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	return nil
}

// Tick runs one heartbeat cycle for the current activation.
func (e *Emitter) Tick(ctx context.Context) Outcome {
	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	return e.tick(ctx, epoch, types.HeartbeatSourceTick)
}

// Wake re-reads the duty flag from the store and then ticks.
func (e *Emitter) Wake(ctx context.Context) Outcome {
	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	return e.wake(ctx, epoch)
}

// IsActive reports whether the emitter is started.
func (e *Emitter) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.active
}

// IsInFlight reports whether a write is awaiting its response.
func (e *Emitter) IsInFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inFlight
}

// IsOnDuty returns the last duty value the emitter adopted.
func (e *Emitter) IsOnDuty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.onDuty
}

// SubjectID returns the bound subject.
func (e *Emitter) SubjectID() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.subjectID
}

func (e *Emitter) run(ctx context.Context, epoch uint64, ticker *time.Ticker, stopCh <-chan struct{}, wakeCh <-chan struct{}) {
	e.tick(ctx, epoch, types.HeartbeatSourceTick)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			e.stopEpoch(epoch)
			return
		case <-ticker.C:
			e.tick(ctx, epoch, types.HeartbeatSourceTick)
		case <-wakeCh:
			e.wake(ctx, epoch)
		}
	}
}

// tick performs one cycle for the activation identified by epoch.
func (e *Emitter) tick(ctx context.Context, epoch uint64, source types.HeartbeatSource) Outcome {
	e.mu.Lock()
	if !e.active || e.epoch != epoch {
		e.mu.Unlock()
		return OutcomeStopped
	}

	var skip Outcome
	switch {
	case e.inFlight:
		skip = OutcomeSkippedInFlight
	case !e.env.IsForeground():
		skip = OutcomeSkippedBackground
	case !e.env.IsOnline():
		skip = OutcomeSkippedOffline
	case !e.onDuty:
		skip = OutcomeSkippedOffDuty
	}
	subjectID := e.subjectID
	m := e.metrics
	if skip != "" {
		e.mu.Unlock()
		m.RecordHeartbeat(subjectID, string(skip))
		e.logger.Debug("heartbeat skipped", "subject", subjectID, "outcome", skip)

		return skip
	}
	e.inFlight = true
	timeout := e.timeout
	e.mu.Unlock()

	callCtx, cancel := withTimeout(ctx, timeout)
	res, err := e.store.AssertAlive(callCtx, subjectID, true, e.env.Now())
	cancel()

	e.mu.Lock()
	e.inFlight = false
	if !e.active || e.epoch != epoch {
		e.mu.Unlock()
		m.RecordHeartbeat(subjectID, string(OutcomeStopped))
		e.logger.Debug("heartbeat response discarded", "subject", subjectID)

		return OutcomeStopped
	}

	if err != nil {
		if types.IsPermissionDenied(err) {
			unsubs := e.stopLocked()
			onDenied := e.onDenied
			e.mu.Unlock()

			for _, unsub := range unsubs {
				unsub()
			}
			m.RecordHeartbeat(subjectID, string(OutcomeDenied))
			e.logger.Error("heartbeat denied, emitter stopped", "subject", subjectID, "error", err)
			if onDenied != nil {
				onDenied(fmt.Errorf("heartbeat for %s: %w", subjectID, err))
			}

			return OutcomeDenied
		}

		e.mu.Unlock()
		m.RecordHeartbeat(subjectID, string(OutcomeFailure))
		e.logger.Warn("heartbeat failed", "subject", subjectID, "error", err)

		return OutcomeFailure
	}

	e.onDuty = res.IsOnDuty
	onResult := e.onResult
	e.mu.Unlock()

	outcome := OutcomeSuccess
	if !res.Applied {
		outcome = OutcomeConditionalNoop
		e.logger.Info("heartbeat not applied, subject is off duty", "subject", subjectID)
	}
	m.RecordHeartbeat(subjectID, string(outcome))

	if onResult != nil {
		onResult(types.HeartbeatResult{
			SubjectID: subjectID,
			IsOnDuty:  res.IsOnDuty,
			TouchedAt: res.TouchedAt,
			Source:    source,
		})
	}

	return outcome
}

func (e *Emitter) wake(ctx context.Context, epoch uint64) Outcome {
	e.mu.Lock()
	if !e.active || e.epoch != epoch {
		e.mu.Unlock()
		return OutcomeStopped
	}
	subjectID := e.subjectID
	timeout := e.timeout
	e.mu.Unlock()

	callCtx, cancel := withTimeout(ctx, timeout)
	duty, err := e.store.ReadDuty(callCtx, subjectID)
	cancel()

	e.mu.Lock()
	if !e.active || e.epoch != epoch {
		e.mu.Unlock()
		return OutcomeStopped
	}
	switch {
	case err != nil:
		// Keep the last known duty value; the tick below surfaces denial.
		e.logger.Warn("duty refresh failed", "subject", subjectID, "error", err)
	case duty == nil:
		e.onDuty = false
	default:
		e.onDuty = duty.IsOnDuty
	}
	e.mu.Unlock()

	return e.tick(ctx, epoch, types.HeartbeatSourceRefresh)
}

// stopEpoch stops the emitter only if epoch is still the current activation.
func (e *Emitter) stopEpoch(epoch uint64) {
	e.mu.Lock()
	if !e.active || e.epoch != epoch {
		e.mu.Unlock()
		return
	}
	unsubs := e.stopLocked()
	e.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// stopLocked must be called with e.mu held; it returns the listeners to release.
func (e *Emitter) stopLocked() []types.Unsubscribe {
	e.active = false
	e.epoch++
	e.ticker.Stop()
	close(e.stopCh)

	unsubs := e.unsubs
	e.unsubs = nil

	return unsubs
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}
