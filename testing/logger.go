package testing

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// NewTestLogger returns a logger that writes through t.Logf.
//
// Key/value pairs are rendered as key=value. Heartbeat and watcher goroutines
// may outlive the test body, so entries logged after the test's cleanups ran
// are dropped instead of panicking inside testing.
func NewTestLogger(t *testing.T) types.Logger {
	l := &testLogger{t: t}
	t.Cleanup(func() { l.done.Store(true) })

	return l
}

type testLogger struct {
	t    *testing.T
	done atomic.Bool
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

// Fatal marks the test as failed. It never exits the process, and it is safe
// to call from background goroutines.
func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	if l.done.Load() {
		return
	}
	l.t.Errorf("FATAL: %s", formatEntry(msg, keysAndValues))
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	if l.done.Load() {
		return
	}
	l.t.Logf("%s: %s", level, formatEntry(msg, keysAndValues))
}

// formatEntry renders msg followed by key=value pairs; a trailing key
// without a value is printed as key=<missing>.
func formatEntry(msg string, keysAndValues []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, "%v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, "%v=<missing>", keysAndValues[i])
		}
	}

	return b.String()
}
