package reconcile

import (
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Sig is a content signature of the displayed fields of a recipient row.
type Sig = xxh3.Uint128

// Signature digests exactly the fields that matter for display: recipient ID
// and status, and the request's ID, status, expiry, selection, creation time,
// notes and query.
//
// Fields are length-prefixed before hashing so adjacent values cannot run into
// each other. A nil request hashes differently from any joined request.
func Signature(r *types.Recipient) Sig {
	if r == nil {
		return Sig{}
	}

	buf := make([]byte, 0, 256)
	buf = appendField(buf, r.RecipientID)
	buf = appendField(buf, string(r.Status))

	if r.Request == nil {
		buf = append(buf, '0')
		return xxh3.Hash128(buf)
	}

	req := r.Request
	buf = append(buf, '1')
	buf = appendField(buf, req.ID)
	buf = appendField(buf, string(req.Status))
	buf = appendTime(buf, req.ExpiresAt)
	buf = appendField(buf, req.SelectedSubjectID)
	buf = appendTime(buf, req.CreatedAt)
	buf = appendField(buf, req.Notes)
	buf = appendField(buf, req.Query)

	return xxh3.Hash128(buf)
}

func appendField(buf []byte, s string) []byte {
	buf = strconv.AppendInt(buf, int64(len(s)), 10)
	buf = append(buf, ':')

	return append(buf, s...)
}

func appendTime(buf []byte, t time.Time) []byte {
	if t.IsZero() {
		return append(buf, '-')
	}
	buf = append(buf, '@')
	buf = strconv.AppendInt(buf, t.Unix(), 10)
	buf = append(buf, '.')

	return strconv.AppendInt(buf, int64(t.Nanosecond()), 10)
}
