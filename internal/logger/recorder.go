package logger

import (
	"slices"
	"sync"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Level names used by Recorder entries.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Entry is one message captured by a Recorder.
type Entry struct {
	Level         string
	Msg           string
	KeysAndValues []any
}

// Field returns the value logged under key, if any.
func (e Entry) Field(key string) (any, bool) {
	for i := 0; i+1 < len(e.KeysAndValues); i += 2 {
		if k, ok := e.KeysAndValues[i].(string); ok && k == key {
			return e.KeysAndValues[i+1], true
		}
	}

	return nil, false
}

// Recorder keeps every message in memory so tests can assert on what was logged.
//
// Example:
//
//	rec := logger.NewRecorder()
//	emitter := heartbeat.New(store, env, time.Second, rec)
//	// ...
//	require.True(t, rec.Has(logger.LevelWarn, "heartbeat failed"))
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

var _ types.Logger = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Debug(msg string, keysAndValues ...any) { r.add(LevelDebug, msg, keysAndValues) }

func (r *Recorder) Info(msg string, keysAndValues ...any) { r.add(LevelInfo, msg, keysAndValues) }

func (r *Recorder) Warn(msg string, keysAndValues ...any) { r.add(LevelWarn, msg, keysAndValues) }

func (r *Recorder) Error(msg string, keysAndValues ...any) { r.add(LevelError, msg, keysAndValues) }

// Fatal records the message at fatal level and returns.
func (r *Recorder) Fatal(msg string, keysAndValues ...any) { r.add(LevelFatal, msg, keysAndValues) }

// Entries returns a snapshot of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.entries)
}

// Has reports whether a message was recorded at level.
func (r *Recorder) Has(level, msg string) bool {
	return r.Count(level, msg) > 0
}

// Count returns how many times msg was recorded at level.
func (r *Recorder) Count(level, msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.Level == level && e.Msg == msg {
			n++
		}
	}

	return n
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
}

func (r *Recorder) add(level, msg string, keysAndValues []any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, Entry{Level: level, Msg: msg, KeysAndValues: slices.Clone(keysAndValues)})
}
