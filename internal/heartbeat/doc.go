// Package heartbeat keeps an on-duty subject's presence record fresh.
//
// An Emitter periodically asserts liveness against a PresenceStore while the
// subject is on duty, the host is in the foreground and the network is up.
// Every write is a conditional update ("touch only if still on duty"), so a
// heartbeat can never turn an off-duty subject back on.
//
// # Lifecycle
//
//  1. Create the emitter with New(store, env, interval, logger)
//  2. Bind the subject with SetSubjectID(id)
//  3. Start(ctx) enters the active state and ticks immediately
//  4. Stop() returns to idle; responses still in flight are discarded
//
// Example:
//
//	emitter := heartbeat.New(store, env, 15*time.Second, logger)
//	emitter.SetSubjectID("pharmacy-42")
//	emitter.OnResult(func(r types.HeartbeatResult) { watcher.ApplyHeartbeat(r) })
//	if err := emitter.Start(ctx); err != nil {
//	    return err
//	}
//	defer emitter.Stop()
//
// # Skipped ticks
//
// A tick performs no I/O when a previous write is still in flight, when the
// host is in the background or offline, or when the last known duty value is
// false. Skips are reported as outcomes and counted, never as errors.
//
// # Wake handling
//
// Transitions to foreground or online trigger Wake: the duty flag is re-read
// from the store and a tick follows right away instead of waiting for the next
// period.
//
// # Failures
//
// Transport errors are logged and retried on the next tick without backoff.
// A permission error is terminal: the emitter stops itself and reports the
// error through the OnDenied callback.
package heartbeat
