// Package medy keeps a pharmacy's on-duty presence alive and its incoming
// request list reconciled against a shared store.
//
// A Session is bound to one signed-in subject (the pharmacy). While the
// store says the subject is on duty, the session writes a conditional
// heartbeat every HeartbeatInterval so other clients can tell a live
// pharmacy from one that merely forgot to toggle off. In parallel it mirrors
// the subject's presence record from the store's change feed and keeps a
// reconciled, identity-stable list of pending requests addressed to it.
//
// # Quick Start
//
//	import (
//	    "github.com/piperia-salata-create/Medy-App-sub001"
//	    "github.com/piperia-salata-create/Medy-App-sub001/environment"
//	    "github.com/piperia-salata-create/Medy-App-sub001/store/natskv"
//	)
//
//	store, err := natskv.Open(ctx, js, natskv.DefaultBuckets())
//	if err != nil {
//	    return err
//	}
//
//	sess, err := medy.NewSession(medy.DefaultConfig(), store, store.Feed(), environment.System())
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	if err := sess.Open(ctx, pharmacyID); err != nil {
//	    return err
//	}
//
// # Key Features
//
//   - Conditional heartbeats: a write never turns duty back on after the owner switched it off
//   - Single in-flight write: a slow store never sees overlapping heartbeats
//   - Staleness: on-duty records older than StalenessThreshold are not reachable
//   - Reconciliation: unchanged requests keep their pointer identity across refetches
//   - Debounced refresh: bursts of feed signals and wake-ups collapse into one fetch
//
// # Architecture
//
// A session moves through a small state machine:
//
//	Idle ⇄ Active → Denied
//	  └──────┴────────┴→ Closed
//
// Active means the heartbeat loop is running. A permission failure from the
// store is terminal for the subject; SwitchSubject starts over with a new one.
//
// # Stores
//
// Two PresenceStore/RequestFeed implementations ship with the module:
// store/natskv on NATS JetStream key-value buckets and store/sqlstore on
// SQLite through GORM. The testing package provides an in-memory store and
// an embedded NATS server for tests.
//
// See the examples/ directory for a complete working agent.
package medy
