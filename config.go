package medy

import (
	"fmt"
	"os"
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/staleness"
	"gopkg.in/yaml.v3"
)

// KVBucketConfig configures NATS JetStream KV bucket names used by store/natskv.
type KVBucketConfig struct {
	// PresenceBucket holds one presence record per subject.
	PresenceBucket string `yaml:"presenceBucket"`

	// RecipientBucket holds recipient rows keyed "<subject>.<recipient>".
	RecipientBucket string `yaml:"recipientBucket"`
}

// ============================================================================
// Timing Model
// ============================================================================
//
// ┌─────────────────────────────────────────────────────────────────────────┐
// │ Liveness                                                                │
// ├─────────────────────────────────────────────────────────────────────────┤
// │ • HeartbeatInterval: 15s                                                │
// │   - One conditional write per interval while on duty                   │
// │ • StalenessThreshold: 45s (3 intervals)                                 │
// │   - Older timestamps no longer count as "reachable"                     │
// └─────────────────────────────────────────────────────────────────────────┘
//
// ┌─────────────────────────────────────────────────────────────────────────┐
// │ Coalescing                                                              │
// ├─────────────────────────────────────────────────────────────────────────┤
// │ • ConnectionDebounce: 250ms                                             │
// │   - Presence resync after foreground/online while the emitter is idle  │
// │ • RequestDebounce: 0 (immediate, still coalesced)                       │
// │   - Request refetch after feed signals                                  │
// └─────────────────────────────────────────────────────────────────────────┘
//
// Constraint:
//   StalenessThreshold >= 2 * HeartbeatInterval (one missed beat tolerated)
//
// ============================================================================

// Config is the configuration for a Session.
//
// All duration fields accept standard Go duration strings like "15s", "250ms".
type Config struct {
	// HeartbeatInterval is how often the emitter asserts liveness.
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`

	// StalenessThreshold is the maximum heartbeat age for a subject to be
	// considered reachable.
	// Recommended: 3x HeartbeatInterval.
	StalenessThreshold time.Duration `yaml:"stalenessThreshold"`

	// ConnectionDebounce coalesces presence resyncs triggered by the app
	// returning to the foreground or the network coming back.
	ConnectionDebounce time.Duration `yaml:"connectionDebounce"`

	// RequestDebounce coalesces request refetches triggered by feed signals.
	// Zero refetches immediately while still merging concurrent signals.
	RequestDebounce time.Duration `yaml:"requestDebounce"`

	// OperationTimeout bounds each store call (0 = no timeout).
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// KVBuckets controls NATS JetStream KV bucket configuration.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:  staleness.HeartbeatInterval,
		StalenessThreshold: staleness.Threshold,
		ConnectionDebounce: 250 * time.Millisecond,
		RequestDebounce:    0,
		OperationTimeout:   0, // No timeout - the store client enforces its own
		KVBuckets: KVBucketConfig{
			PresenceBucket:  "medy-presence",
			RecipientBucket: "medy-recipients",
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.StalenessThreshold == 0 {
		cfg.StalenessThreshold = 3 * cfg.HeartbeatInterval
	}
	if cfg.ConnectionDebounce == 0 {
		cfg.ConnectionDebounce = defaults.ConnectionDebounce
	}
	if cfg.KVBuckets.PresenceBucket == "" {
		cfg.KVBuckets.PresenceBucket = defaults.KVBuckets.PresenceBucket
	}
	if cfg.KVBuckets.RecipientBucket == "" {
		cfg.KVBuckets.RecipientBucket = defaults.KVBuckets.RecipientBucket
	}
	// Note: RequestDebounce and OperationTimeout of 0 are valid, so no default is applied
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - HeartbeatInterval > 0
//   - StalenessThreshold >= 2 * HeartbeatInterval (allow 1 missed heartbeat)
//   - ConnectionDebounce, RequestDebounce, OperationTimeout >= 0
//   - Bucket names are non-empty
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("HeartbeatInterval must be > 0, got %v", cfg.HeartbeatInterval)
	}

	if cfg.StalenessThreshold < 2*cfg.HeartbeatInterval {
		return fmt.Errorf(
			"StalenessThreshold (%v) must be >= 2*HeartbeatInterval (%v) to allow one missed heartbeat",
			cfg.StalenessThreshold, cfg.HeartbeatInterval,
		)
	}

	if cfg.ConnectionDebounce < 0 {
		return fmt.Errorf("ConnectionDebounce must be >= 0, got %v", cfg.ConnectionDebounce)
	}

	if cfg.RequestDebounce < 0 {
		return fmt.Errorf("RequestDebounce must be >= 0, got %v", cfg.RequestDebounce)
	}

	if cfg.OperationTimeout < 0 {
		return fmt.Errorf("OperationTimeout must be >= 0, got %v", cfg.OperationTimeout)
	}

	if cfg.KVBuckets.PresenceBucket == "" || cfg.KVBuckets.RecipientBucket == "" {
		return fmt.Errorf("KV bucket names must not be empty")
	}

	return nil
}

// ValidateWithWarnings logs warnings for non-recommended values.
//
// This is called after Validate() in NewSession() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.StalenessThreshold < 3*cfg.HeartbeatInterval {
		logger.Warn(
			"StalenessThreshold is below recommended minimum",
			"stalenessThreshold", cfg.StalenessThreshold,
			"heartbeatInterval", cfg.HeartbeatInterval,
			"recommended", 3*cfg.HeartbeatInterval,
		)
	}

	if cfg.OperationTimeout > 0 && cfg.OperationTimeout >= cfg.HeartbeatInterval {
		logger.Warn(
			"OperationTimeout is not shorter than HeartbeatInterval, slow writes will skip ticks",
			"operationTimeout", cfg.OperationTimeout,
			"heartbeatInterval", cfg.HeartbeatInterval,
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := medy.TestConfig()
//	sess, err := medy.NewSession(cfg, store, feed, env)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.HeartbeatInterval = 50 * time.Millisecond   // 300x faster
	cfg.StalenessThreshold = 150 * time.Millisecond // 300x faster
	cfg.ConnectionDebounce = 10 * time.Millisecond  // 25x faster

	return cfg
}

// ParseConfig decodes a YAML document into a Config, applies defaults and validates it.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - Config: Decoded configuration
//   - error: Decode or validation error
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
//
// Parameters:
//   - path: File path
//
// Returns:
//   - Config: Decoded configuration
//   - error: Read, decode or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	return ParseConfig(data)
}
