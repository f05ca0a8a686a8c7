// Package staleness decides whether a presence record is still live.
//
// A pharmacy's declared "on duty" flag is only trusted while its heartbeat
// timestamp is recent. The heartbeat period is 15 seconds and the staleness
// threshold is 45 seconds, so up to two missed beats are tolerated before an
// observer treats the pharmacy as effectively off duty.
//
// Staleness is always derived at read time from the caller's clock; it is never stored.
//
// Example:
//
//	rec := types.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: true, LastTouchedAt: last}
//	if !staleness.IsEffectivelyOnDuty(rec, time.Now(), staleness.Threshold) {
//	    // show as closed despite the stored flag
//	}
package staleness
