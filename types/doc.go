// Package types provides core type definitions and interfaces for the medy presence library.
//
// This package contains shared types that are used across multiple packages of the
// library. By keeping these types in a separate package, internal implementations
// can depend on them without importing the root package.
//
// Key types:
//   - PresenceRecord, PresenceChange, PresenceState: on-duty presence of a pharmacy
//   - Recipient, Request: incoming request rows shown to a pharmacy
//   - PresenceStore, RequestFeed, Environment: external collaborators
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
