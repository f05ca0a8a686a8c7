package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

func TestSignature(t *testing.T) {
	base := row("a", 10)

	t.Run("equal content equal signature", func(t *testing.T) {
		require.Equal(t, Signature(base), Signature(clone(base)))
	})

	t.Run("nil row", func(t *testing.T) {
		require.Equal(t, Sig{}, Signature(nil))
	})

	mutations := map[string]func(r *types.Recipient){
		"recipient id":     func(r *types.Recipient) { r.RecipientID = "b" },
		"recipient status": func(r *types.Recipient) { r.Status = "accepted" },
		"request id":       func(r *types.Recipient) { r.Request.ID = "req-z" },
		"request status":   func(r *types.Recipient) { r.Request.Status = "accepted" },
		"expiry":           func(r *types.Recipient) { r.Request.ExpiresAt = t0 },
		"selection":        func(r *types.Recipient) { r.Request.SelectedSubjectID = viewer },
		"creation":         func(r *types.Recipient) { r.Request.CreatedAt = time.UnixMilli(11) },
		"notes":            func(r *types.Recipient) { r.Request.Notes = "n" },
		"query":            func(r *types.Recipient) { r.Request.Query = "ibuprofen" },
		"null request":     func(r *types.Recipient) { r.Request = nil },
	}

	for name, mutate := range mutations {
		t.Run(name+" changes signature", func(t *testing.T) {
			c := clone(base)
			mutate(c)
			require.NotEqual(t, Signature(base), Signature(c))
		})
	}

	t.Run("subject id is not displayed", func(t *testing.T) {
		c := clone(base)
		c.SubjectID = "other"
		require.Equal(t, Signature(base), Signature(c))
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		x := clone(base)
		x.Request.Notes = "ab"
		x.Request.Query = "c"
		y := clone(base)
		y.Request.Notes = "a"
		y.Request.Query = "bc"
		require.NotEqual(t, Signature(x), Signature(y))
	})
}
