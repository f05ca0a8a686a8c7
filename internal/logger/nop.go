// Package logger provides the library's built-in Logger implementations.
package logger

import "github.com/piperia-salata-create/Medy-App-sub001/types"

// NopLogger drops every message.
//
// It is the session default when no logger is supplied:
//
//	sess, _ := medy.NewSession(cfg, store, feed, env) // logs nowhere
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNop returns a logger that discards all output.
func NewNop() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(string, ...any) {}

func (n *NopLogger) Info(string, ...any) {}

func (n *NopLogger) Warn(string, ...any) {}

func (n *NopLogger) Error(string, ...any) {}

// Fatal drops the message and returns; it never exits the process.
func (n *NopLogger) Fatal(string, ...any) {}
