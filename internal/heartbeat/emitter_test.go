package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperia-salata-create/Medy-App-sub001/environment"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/metrics"
	medytest "github.com/piperia-salata-create/Medy-App-sub001/testing"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

const subject = "pharmacy-1"

type resultLog struct {
	mu      sync.Mutex
	results []types.HeartbeatResult
}

func (l *resultLog) add(r types.HeartbeatResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.results = append(l.results, r)
}

func (l *resultLog) all() []types.HeartbeatResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.HeartbeatResult, len(l.results))
	copy(out, l.results)

	return out
}

type outcomeCounter struct {
	*metrics.NopMetrics

	mu     sync.Mutex
	counts map[string]int
}

func newOutcomeCounter() *outcomeCounter {
	return &outcomeCounter{NopMetrics: metrics.NewNop(), counts: make(map[string]int)}
}

func (c *outcomeCounter) RecordHeartbeat(_ string, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts[outcome]++
}

func (c *outcomeCounter) count(o Outcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[string(o)]
}

// newEmitter returns an emitter with a one-hour interval so only the
// immediate tick and explicit Tick calls run during a test.
func newEmitter(t *testing.T, store *medytest.MemoryStore, env *environment.Manual) (*Emitter, *resultLog) {
	t.Helper()

	e := New(store, env, time.Hour, medytest.NewTestLogger(t))
	e.SetSubjectID(subject)
	log := &resultLog{}
	e.OnResult(log.add)
	t.Cleanup(func() { _ = e.Stop() })

	return e, log
}

func TestEmitter_Start(t *testing.T) {
	t.Run("requires a subject", func(t *testing.T) {
		e := New(medytest.NewMemoryStore(), environment.System(), time.Hour, nil)

		err := e.Start(t.Context())
		require.ErrorIs(t, err, types.ErrNoSubjectID)
		require.False(t, e.IsActive())
	})

	t.Run("rejects a second start", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		e, _ := newEmitter(t, store, environment.System())

		require.NoError(t, e.Start(t.Context()))
		require.ErrorIs(t, e.Start(t.Context()), types.ErrEmitterAlreadyStarted)
	})

	t.Run("ticks immediately and touches the record", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		store.SetDuty(subject, true)
		env := environment.NewManual(true, true)
		now := time.UnixMilli(1_700_000_000_000)
		env.SetNow(now)
		e, log := newEmitter(t, store, env)

		require.NoError(t, e.Start(t.Context()))

		require.Eventually(t, func() bool { return len(log.all()) == 1 }, time.Second, 5*time.Millisecond)
		res := log.all()[0]
		require.True(t, res.IsOnDuty)
		require.Equal(t, now, res.TouchedAt)
		require.Equal(t, types.HeartbeatSourceTick, res.Source)

		rec, _ := store.Presence(subject)
		require.Equal(t, now, rec.LastTouchedAt)
	})

	t.Run("ticks on every interval", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		store.SetDuty(subject, true)
		e := New(store, environment.System(), 10*time.Millisecond, nil)
		e.SetSubjectID(subject)
		t.Cleanup(func() { _ = e.Stop() })

		require.NoError(t, e.Start(t.Context()))
		require.Eventually(t, func() bool { return store.AssertCalls() >= 3 }, time.Second, 5*time.Millisecond)
	})
}

func TestEmitter_Stop(t *testing.T) {
	t.Run("idle emitter", func(t *testing.T) {
		e := New(medytest.NewMemoryStore(), environment.System(), time.Hour, nil)
		require.ErrorIs(t, e.Stop(), types.ErrEmitterNotStarted)
	})

	t.Run("releases environment listeners", func(t *testing.T) {
		env := environment.NewManual(true, true)
		e, _ := newEmitter(t, medytest.NewMemoryStore(), env)

		require.NoError(t, e.Start(t.Context()))
		require.Equal(t, 2, env.ListenerCount())

		require.NoError(t, e.Stop())
		require.Equal(t, 0, env.ListenerCount())
		require.False(t, e.IsActive())
		require.Equal(t, OutcomeStopped, e.Tick(t.Context()))
	})

	t.Run("context cancellation stops the emitter", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		e, _ := newEmitter(t, medytest.NewMemoryStore(), environment.System())

		require.NoError(t, e.Start(ctx))
		cancel()

		require.Eventually(t, func() bool { return !e.IsActive() }, time.Second, 5*time.Millisecond)
	})
}

func TestEmitter_SkipsWithoutNetwork(t *testing.T) {
	tests := []struct {
		name       string
		foreground bool
		online     bool
		want       Outcome
	}{
		{"background", false, true, OutcomeSkippedBackground},
		{"offline", true, false, OutcomeSkippedOffline},
		{"background and offline", false, false, OutcomeSkippedBackground},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := medytest.NewMemoryStore()
			store.SetDuty(subject, true)
			env := environment.NewManual(tt.foreground, tt.online)
			e, _ := newEmitter(t, store, env)
			counter := newOutcomeCounter()
			e.SetMetrics(counter)

			require.NoError(t, e.Start(t.Context()))
			require.Eventually(t, func() bool { return counter.count(tt.want) == 1 }, time.Second, 5*time.Millisecond)

			require.Equal(t, tt.want, e.Tick(t.Context()))
			require.True(t, tt.want.Skipped())
			require.Zero(t, store.AssertCalls())
		})
	}
}

func TestEmitter_ConditionalWrite(t *testing.T) {
	store := medytest.NewMemoryStore()
	store.SetDuty(subject, false)
	env := environment.System()
	e, log := newEmitter(t, store, env)
	counter := newOutcomeCounter()
	e.SetMetrics(counter)

	require.NoError(t, e.Start(t.Context()))
	require.Eventually(t, func() bool { return counter.count(OutcomeConditionalNoop) == 1 }, time.Second, 5*time.Millisecond)

	rec, ok := store.Presence(subject)
	require.True(t, ok)
	require.False(t, rec.IsOnDuty, "heartbeat must never turn duty back on")
	require.True(t, rec.LastTouchedAt.IsZero())

	results := log.all()
	require.Len(t, results, 1)
	require.False(t, results[0].IsOnDuty)
	require.False(t, e.IsOnDuty())

	require.Equal(t, OutcomeSkippedOffDuty, e.Tick(t.Context()))
	require.Equal(t, int64(1), store.AssertCalls())
}

func TestEmitter_SingleInFlightWrite(t *testing.T) {
	store := medytest.NewMemoryStore()
	store.SetDuty(subject, true)
	release := store.HoldAsserts()
	defer release()

	e, log := newEmitter(t, store, environment.System())

	require.NoError(t, e.Start(t.Context()))
	require.Eventually(t, e.IsInFlight, time.Second, 5*time.Millisecond)

	require.Equal(t, OutcomeSkippedInFlight, e.Tick(t.Context()))

	// Restarting does not reset the in-flight guard.
	require.NoError(t, e.Stop())
	require.NoError(t, e.Start(t.Context()))
	require.Equal(t, OutcomeSkippedInFlight, e.Tick(t.Context()))

	release()
	require.Eventually(t, func() bool { return !e.IsInFlight() }, time.Second, 5*time.Millisecond)

	require.Equal(t, int64(1), store.MaxConcurrentAsserts())
	require.Empty(t, log.all(), "response from a stopped activation must be discarded")

	require.Equal(t, OutcomeSuccess, e.Tick(t.Context()))
	require.Len(t, log.all(), 1)
}

func TestEmitter_Failures(t *testing.T) {
	t.Run("transport error is retried on the next tick", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		store.SetDuty(subject, true)
		store.SetAssertError(errors.New("nats: timeout"))
		rec := logger.NewRecorder()

		e := New(store, environment.System(), time.Hour, rec)
		e.SetSubjectID(subject)
		t.Cleanup(func() { _ = e.Stop() })

		require.NoError(t, e.Start(t.Context()))
		require.Eventually(t, func() bool { return rec.Has(logger.LevelWarn, "heartbeat failed") }, time.Second, 5*time.Millisecond)
		require.True(t, e.IsActive())

		store.SetAssertError(nil)
		require.Equal(t, OutcomeSuccess, e.Tick(t.Context()))
	})

	t.Run("permission denied stops the emitter", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		store.SetDuty(subject, true)
		store.SetAssertError(errors.New("nats: permissions violation for publish"))
		env := environment.NewManual(true, true)
		e, log := newEmitter(t, store, env)

		denied := make(chan error, 1)
		e.OnDenied(func(err error) { denied <- err })

		require.NoError(t, e.Start(t.Context()))

		select {
		case err := <-denied:
			require.Contains(t, err.Error(), subject)
		case <-time.After(time.Second):
			t.Fatal("denied callback not invoked")
		}

		require.False(t, e.IsActive())
		require.Equal(t, 0, env.ListenerCount())
		require.Empty(t, log.all())
	})
}

func TestEmitter_Wake(t *testing.T) {
	t.Run("foreground transition refreshes duty then ticks", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		store.SetDuty(subject, true)
		env := environment.NewManual(false, true)
		e, log := newEmitter(t, store, env)
		counter := newOutcomeCounter()
		e.SetMetrics(counter)

		require.NoError(t, e.Start(t.Context()))
		require.Eventually(t, func() bool { return counter.count(OutcomeSkippedBackground) == 1 }, time.Second, 5*time.Millisecond)

		env.SetForeground(true)

		require.Eventually(t, func() bool { return len(log.all()) == 1 }, time.Second, 5*time.Millisecond)
		require.Equal(t, types.HeartbeatSourceRefresh, log.all()[0].Source)
		require.Equal(t, int64(1), store.ReadCalls())
	})

	t.Run("refresh adopts an off-duty record", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		store.SetDuty(subject, true)
		env := environment.NewManual(true, false)
		e, _ := newEmitter(t, store, env)

		require.NoError(t, e.Start(t.Context()))
		store.SetDuty(subject, false)

		require.Equal(t, OutcomeSkippedOffline, e.Wake(t.Context()))
		require.False(t, e.IsOnDuty())
	})

	t.Run("missing record means off duty", func(t *testing.T) {
		store := medytest.NewMemoryStore()
		e, _ := newEmitter(t, store, environment.NewManual(true, true))
		require.NoError(t, e.Start(t.Context()))
		require.Eventually(t, func() bool { return store.AssertCalls() == 1 }, time.Second, 5*time.Millisecond)

		require.Equal(t, OutcomeSkippedOffDuty, e.Wake(t.Context()))
	})
}
