package reconcile

import (
	"cmp"
	"slices"
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	// List is a new slice; it never aliases the previous list or the fresh rows slice.
	List []*types.Recipient

	// Changed is true iff List differs from the previous list in length,
	// order, or any element reference.
	Changed bool
}

// Eligible reports whether the row should currently be shown to viewerID.
//
// Nil rows, rows without a recipient ID and rows whose request failed to join
// are ineligible.
func Eligible(r *types.Recipient, viewerID string, now time.Time) bool {
	if r == nil || r.RecipientID == "" || r.Request == nil {
		return false
	}

	req := r.Request
	if req.Status == types.RequestCancelled || r.Status == types.RecipientCancelled {
		return false
	}
	if !req.ExpiresAt.IsZero() && !req.ExpiresAt.After(now) {
		return false
	}
	if req.SelectedSubjectID != "" && req.SelectedSubjectID != viewerID {
		return false
	}

	return r.Status == types.RecipientPending
}

// Compare orders two eligible rows: newest request first, then recipient ID ascending.
//
// Both rows must have a non-nil Request.
func Compare(a, b *types.Recipient) int {
	if c := b.Request.CreatedAt.Compare(a.Request.CreatedAt); c != 0 {
		return c
	}

	return cmp.Compare(a.RecipientID, b.RecipientID)
}

// Reconcile derives the stabilized list for viewerID from a full refetch.
//
// Steps:
//  1. de-duplicate by recipient ID (the last occurrence in fresh wins), then
//     drop rows failing Eligible at now
//  2. sort by Compare
//  3. reuse the previous pointer for every entry whose Signature is unchanged
//  4. compute Changed against previous
//
// Neither previous nor fresh is modified.
//
// Parameters:
//   - previous: List returned by the previous pass (nil on the first pass)
//   - fresh: Rows returned by the refetch, in any order
//   - viewerID: Subject viewing the list
//   - now: Evaluation time
//
// Returns:
//   - Result: New list and change flag
func Reconcile(previous, fresh []*types.Recipient, viewerID string, now time.Time) Result {
	// The last copy of a row decides, even when an earlier copy is eligible.
	byID := make(map[string]int, len(fresh))
	latest := make([]*types.Recipient, 0, len(fresh))
	for _, r := range fresh {
		if r == nil || r.RecipientID == "" {
			continue
		}
		if idx, ok := byID[r.RecipientID]; ok {
			latest[idx] = r
			continue
		}
		byID[r.RecipientID] = len(latest)
		latest = append(latest, r)
	}

	survivors := make([]*types.Recipient, 0, len(latest))
	for _, r := range latest {
		if Eligible(r, viewerID, now) {
			survivors = append(survivors, r)
		}
	}

	slices.SortFunc(survivors, Compare)

	prevByID := make(map[string]*types.Recipient, len(previous))
	for _, p := range previous {
		if p != nil {
			prevByID[p.RecipientID] = p
		}
	}

	for i, r := range survivors {
		p, ok := prevByID[r.RecipientID]
		if !ok || p == r {
			continue
		}
		if Signature(p) == Signature(r) {
			survivors[i] = p
		}
	}

	return Result{List: survivors, Changed: !sameRefs(previous, survivors)}
}

// NextExpiry returns the earliest expiry strictly after now among the list,
// or the zero time when nothing in the list expires.
func NextExpiry(list []*types.Recipient, now time.Time) time.Time {
	var next time.Time
	for _, r := range list {
		if r == nil || r.Request == nil {
			continue
		}
		exp := r.Request.ExpiresAt
		if exp.IsZero() || !exp.After(now) {
			continue
		}
		if next.IsZero() || exp.Before(next) {
			next = exp
		}
	}

	return next
}

func sameRefs(a, b []*types.Recipient) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
