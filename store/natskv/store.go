package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/kvutil"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/natsutil"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// ErrConflictRetriesExhausted is returned when every compare-and-set attempt lost a race.
var ErrConflictRetriesExhausted = errors.New("presence update kept conflicting")

// ErrInvalidKey is returned for IDs that cannot be used as a KV key token.
var ErrInvalidKey = errors.New("invalid key token")

const defaultCASAttempts = 5

// Buckets names the two buckets used by the store.
type Buckets struct {
	Presence   string `yaml:"presence"`
	Recipients string `yaml:"recipients"`

	// Storage selects file or memory storage when the buckets are created.
	Storage jetstream.StorageType `yaml:"-"`

	// Replicas is the replica count for created buckets (1 if zero).
	Replicas int `yaml:"replicas"`
}

// DefaultBuckets returns the bucket names used when none are configured.
func DefaultBuckets() Buckets {
	return Buckets{
		Presence:   "medy-presence",
		Recipients: "medy-recipients",
		Storage:    jetstream.FileStorage,
		Replicas:   1,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l types.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCASAttempts bounds the compare-and-set retries of AssertAlive.
func WithCASAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.casAttempts = n
		}
	}
}

// Store is a PresenceStore backed by JetStream KV. Its request feed is
// available through Feed.
type Store struct {
	presence    jetstream.KeyValue
	recipients  jetstream.KeyValue
	logger      types.Logger
	casAttempts int
}

var (
	_ types.PresenceStore = (*Store)(nil)
	_ types.RequestFeed   = (*Feed)(nil)
)

// New wraps existing buckets.
//
// Parameters:
//   - presence: Bucket holding presence records
//   - recipients: Bucket holding recipient rows
//   - opts: Optional configuration
//
// Returns:
//   - *Store: Store ready for use
func New(presence, recipients jetstream.KeyValue, opts ...Option) *Store {
	s := &Store{
		presence:    presence,
		recipients:  recipients,
		logger:      logger.NewNop(),
		casAttempts: defaultCASAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open creates or opens both buckets and wraps them.
//
// Example:
//
//	js, _ := jetstream.New(nc)
//	store, err := natskv.Open(ctx, js, natskv.DefaultBuckets())
//	if err != nil {
//	    return err
//	}
//	sess, _ := medy.NewSession(cfg, store, store.Feed(), env)
func Open(ctx context.Context, js jetstream.JetStream, buckets Buckets, opts ...Option) (*Store, error) {
	replicas := buckets.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	presence, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      buckets.Presence,
		Description: "Subject presence records",
		History:     1,
		Storage:     buckets.Storage,
		Replicas:    replicas,
	}, kvutil.DefaultMaxAttempts)
	if err != nil {
		return nil, natsutil.Classify(err)
	}

	recipients, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      buckets.Recipients,
		Description: "Incoming request recipients",
		History:     1,
		Storage:     buckets.Storage,
		Replicas:    replicas,
	}, kvutil.DefaultMaxAttempts)
	if err != nil {
		return nil, natsutil.Classify(err)
	}

	return New(presence, recipients, opts...), nil
}

// Feed returns the RequestFeed view of the store.
func (s *Store) Feed() *Feed {
	return &Feed{s: s}
}

// presencePayload decodes records that may omit fields.
type presencePayload struct {
	SubjectID     string     `json:"subjectId"`
	IsOnDuty      *bool      `json:"isOnDuty"`
	LastTouchedAt *time.Time `json:"lastTouchedAt"`
}

func decodePresence(data []byte) (presencePayload, error) {
	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %w", types.ErrMalformedPayload, err)
	}

	return p, nil
}

// ReadDuty implements types.PresenceStore. A missing or deleted record yields nil.
func (s *Store) ReadDuty(ctx context.Context, subjectID string) (*types.DutyState, error) {
	if err := validToken(subjectID); err != nil {
		return nil, err
	}

	entry, err := s.presence.Get(ctx, subjectID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read duty for %s: %w", subjectID, natsutil.Classify(err))
	}

	p, err := decodePresence(entry.Value())
	if err != nil {
		return nil, fmt.Errorf("read duty for %s: %w", subjectID, err)
	}

	return &types.DutyState{SubjectID: subjectID, IsOnDuty: p.IsOnDuty != nil && *p.IsOnDuty}, nil
}

// AssertAlive implements types.PresenceStore.
//
// The record is touched only when its duty flag equals expectedCurrentDuty; a
// missing record is never created.
func (s *Store) AssertAlive(ctx context.Context, subjectID string, expectedCurrentDuty bool, at time.Time) (types.AssertResult, error) {
	if err := validToken(subjectID); err != nil {
		return types.AssertResult{}, err
	}

	for attempt := 0; attempt < s.casAttempts; attempt++ {
		entry, err := s.presence.Get(ctx, subjectID)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.AssertResult{}, nil
		}
		if err != nil {
			return types.AssertResult{}, fmt.Errorf("assert alive for %s: %w", subjectID, natsutil.Classify(err))
		}

		p, err := decodePresence(entry.Value())
		if err != nil {
			return types.AssertResult{}, fmt.Errorf("assert alive for %s: %w", subjectID, err)
		}

		onDuty := p.IsOnDuty != nil && *p.IsOnDuty
		if onDuty != expectedCurrentDuty {
			return types.AssertResult{IsOnDuty: onDuty}, nil
		}

		data, err := json.Marshal(types.PresenceRecord{SubjectID: subjectID, IsOnDuty: true, LastTouchedAt: at})
		if err != nil {
			return types.AssertResult{}, fmt.Errorf("encode presence for %s: %w", subjectID, err)
		}

		_, err = s.presence.Update(ctx, subjectID, data, entry.Revision())
		if natsutil.IsRevisionConflict(err) {
			s.logger.Debug("presence update conflicted, retrying", "subject", subjectID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return types.AssertResult{}, fmt.Errorf("assert alive for %s: %w", subjectID, natsutil.Classify(err))
		}

		return types.AssertResult{IsOnDuty: true, Applied: true, TouchedAt: at}, nil
	}

	return types.AssertResult{}, fmt.Errorf("assert alive for %s: %w", subjectID, ErrConflictRetriesExhausted)
}

// Subscribe implements types.PresenceStore.
func (s *Store) Subscribe(ctx context.Context, subjectID string, onChange func(types.PresenceChange)) (types.Unsubscribe, error) {
	if err := validToken(subjectID); err != nil {
		return nil, err
	}

	w, err := s.presence.Watch(ctx, subjectID, jetstream.UpdatesOnly())
	if err != nil {
		return nil, fmt.Errorf("watch presence for %s: %w", subjectID, natsutil.Classify(err))
	}

	return s.consume(ctx, w, func(entry jetstream.KeyValueEntry) {
		change, ok := s.presenceChange(subjectID, entry)
		if ok {
			onChange(change)
		}
	}), nil
}

func (s *Store) presenceChange(subjectID string, entry jetstream.KeyValueEntry) (types.PresenceChange, bool) {
	if op := entry.Operation(); op == jetstream.KeyValueDelete || op == jetstream.KeyValuePurge {
		return types.PresenceChange{SubjectID: subjectID, Deleted: true}, true
	}

	p, err := decodePresence(entry.Value())
	if err != nil {
		s.logger.Debug("presence event dropped", "subject", subjectID, "error", err)
		return types.PresenceChange{}, false
	}

	change := types.PresenceChange{SubjectID: subjectID, IsOnDuty: p.IsOnDuty}
	if p.LastTouchedAt != nil && !p.LastTouchedAt.IsZero() {
		change.LastTouchedAt = p.LastTouchedAt
	}

	return change, true
}

// consume delivers watch entries until the returned function is called or ctx ends.
func (s *Store) consume(ctx context.Context, w jetstream.KeyWatcher, handle func(jetstream.KeyValueEntry)) types.Unsubscribe {
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			if err := w.Stop(); err != nil {
				s.logger.Debug("watch stop failed", "error", err)
			}
		})
	}

	go func() {
		defer stop()

		updates := w.Updates()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case entry, ok := <-updates:
				if !ok {
					return
				}
				if entry == nil {
					continue
				}
				select {
				case <-done:
					return
				default:
				}
				handle(entry)
			}
		}
	}()

	return stop
}

// PutPresence writes a full presence record, as the owner's duty toggle does.
func (s *Store) PutPresence(ctx context.Context, rec types.PresenceRecord) error {
	if err := validToken(rec.SubjectID); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode presence for %s: %w", rec.SubjectID, err)
	}

	if _, err := s.presence.Put(ctx, rec.SubjectID, data); err != nil {
		return fmt.Errorf("put presence for %s: %w", rec.SubjectID, natsutil.Classify(err))
	}

	return nil
}

// DeletePresence removes a subject's presence record.
func (s *Store) DeletePresence(ctx context.Context, subjectID string) error {
	if err := validToken(subjectID); err != nil {
		return err
	}

	if err := s.presence.Delete(ctx, subjectID); err != nil {
		return fmt.Errorf("delete presence for %s: %w", subjectID, natsutil.Classify(err))
	}

	return nil
}

// validToken accepts IDs made of KV-safe characters without dots, so that
// "{subject}.{recipient}" keys split unambiguously.
func validToken(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '=', c == '/':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidKey, id)
		}
	}

	return nil
}
