// Package reconcile turns a full refetch of incoming request rows into a
// stable, ordered, de-duplicated list.
//
// Reconcile is a pure function over (previous list, fresh rows, viewer, now).
// It re-derives eligibility on every pass because eligibility depends on the
// clock: a request expires without any row changing. Entries whose displayed
// content did not change keep the exact pointer from the previous pass, so
// consumers can detect changes with reference equality alone.
//
// # Eligibility
//
// A row is shown to viewer v at time now iff:
//   - the request joined (Request != nil)
//   - neither the request nor the recipient row is cancelled
//   - the request has no expiry, or expires strictly after now
//   - the request selected no pharmacy yet, or selected v
//   - the recipient row is still pending
//
// # Ordering
//
// Request creation time descending, then recipient ID ascending.
//
// Example:
//
//	res := reconcile.Reconcile(prev, rows, "pharmacy-1", time.Now())
//	if res.Changed {
//	    render(res.List)
//	}
//	prev = res.List
package reconcile
