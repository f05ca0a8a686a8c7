package medy

import (
	"log/slog"

	"go.uber.org/zap"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/logging"
)

// Option configures a Session with optional dependencies.
type Option func(*sessionOptions)

// sessionOptions holds optional Session configuration.
type sessionOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewSession
//
// Example:
//
//	hooks := &medy.Hooks{
//	    OnRequestsChanged: func(ctx context.Context, subjectID string, list []*medy.Recipient) error {
//	        return render(list)
//	    },
//	}
//	sess, err := medy.NewSession(cfg, store, feed, env, medy.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *sessionOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewSession
//
// Example:
//
//	collector := medy.NewPrometheusMetrics(prometheus.DefaultRegisterer, "pharmacy")
//	sess, err := medy.NewSession(cfg, store, feed, env, medy.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *sessionOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation
//
// Returns:
//   - Option: Functional option for NewSession
//
// Example:
//
//	sess, err := medy.NewSession(cfg, store, feed, env, medy.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithSlogLogger sets a log/slog logger. A nil logger uses slog.Default().
//
// Parameters:
//   - logger: Structured logger to adapt
//
// Returns:
//   - Option: Functional option for NewSession
func WithSlogLogger(logger *slog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logging.NewSlog(logger)
	}
}

// WithZapLogger sets a zap logger. Messages go through the sugared
// key-value methods (Infow, Warnw and so on).
//
// Parameters:
//   - logger: Sugared zap logger; nil discards output
//
// Returns:
//   - Option: Functional option for NewSession
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	sess, err := medy.NewSession(cfg, store, feed, env, medy.WithZapLogger(logger))
func WithZapLogger(logger *zap.SugaredLogger) Option {
	return func(o *sessionOptions) {
		o.logger = logging.NewZap(logger)
	}
}

// NewZapLogger adapts a sugared zap logger for use with the store packages.
func NewZapLogger(logger *zap.SugaredLogger) Logger {
	return logging.NewZap(logger)
}
