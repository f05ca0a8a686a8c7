package testing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/fanout"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// MemoryStore is an in-memory PresenceStore that also backs a RequestFeed (see FeedView).
//
// Reads return fresh copies on every call, the way a remote table does, so
// identity-preservation logic is exercised realistically. Faults can be
// injected per operation, and HoldAsserts lets a test keep a heartbeat write in
// flight.
type MemoryStore struct {
	mu         sync.Mutex
	records    map[string]types.PresenceRecord
	recipients map[string]map[string]*types.Recipient

	presenceSub *fanout.Registry[func(types.PresenceChange)]
	feedSub     *fanout.Registry[func()]

	assertErr    error
	readErr      error
	fetchErr     error
	subscribeErr error
	assertGate   chan struct{}

	assertCalls atomic.Int64
	readCalls   atomic.Int64
	fetchCalls  atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// Compile-time assertions for both collaborator views.
var (
	_ types.PresenceStore = (*MemoryStore)(nil)
	_ types.RequestFeed   = memoryFeed{}
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[string]types.PresenceRecord),
		recipients:  make(map[string]map[string]*types.Recipient),
		presenceSub: fanout.New[func(types.PresenceChange)](),
		feedSub:     fanout.New[func()](),
	}
}

// ReadDuty implements types.PresenceStore.
func (s *MemoryStore) ReadDuty(_ context.Context, subjectID string) (*types.DutyState, error) {
	s.readCalls.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, s.readErr
	}

	rec, ok := s.records[subjectID]
	if !ok {
		return nil, nil
	}

	return &types.DutyState{SubjectID: subjectID, IsOnDuty: rec.IsOnDuty}, nil
}

// AssertAlive implements types.PresenceStore as a conditional update.
func (s *MemoryStore) AssertAlive(ctx context.Context, subjectID string, expectedCurrentDuty bool, at time.Time) (types.AssertResult, error) {
	s.assertCalls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.maxInFlight.Load()
		if cur <= peak || s.maxInFlight.CompareAndSwap(peak, cur) {
			break
		}
	}

	s.mu.Lock()
	gate := s.assertGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return types.AssertResult{}, ctx.Err()
		}
	}

	s.mu.Lock()
	if s.assertErr != nil {
		err := s.assertErr
		s.mu.Unlock()

		return types.AssertResult{}, err
	}

	rec, ok := s.records[subjectID]
	if !ok || rec.IsOnDuty != expectedCurrentDuty {
		s.mu.Unlock()
		return types.AssertResult{IsOnDuty: rec.IsOnDuty, Applied: false}, nil
	}

	rec.IsOnDuty = true
	rec.LastTouchedAt = at
	s.records[subjectID] = rec
	subs := s.presenceCallbacks(subjectID)
	s.mu.Unlock()

	onDuty := true
	touched := at
	for _, cb := range subs {
		cb(types.PresenceChange{SubjectID: subjectID, IsOnDuty: &onDuty, LastTouchedAt: &touched})
	}

	return types.AssertResult{IsOnDuty: true, Applied: true, TouchedAt: at}, nil
}

// Subscribe implements types.PresenceStore.
func (s *MemoryStore) Subscribe(_ context.Context, subjectID string, onChange func(types.PresenceChange)) (types.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}

	return s.presenceSub.Add(subjectID, onChange), nil
}

// FetchCandidates backs the RequestFeed view.
//
// Only pending recipient rows are returned; time-based eligibility is left to the caller.
func (s *MemoryStore) FetchCandidates(_ context.Context, subjectID string, _ time.Time) ([]*types.Recipient, error) {
	s.fetchCalls.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	rows := make([]*types.Recipient, 0, len(s.recipients[subjectID]))
	for _, r := range s.recipients[subjectID] {
		if r.Status != types.RecipientPending {
			continue
		}
		rows = append(rows, cloneRecipient(r))
	}

	return rows, nil
}

// SubscribeRequests implements the RequestFeed subscription.
//
// MemoryStore cannot implement both Subscribe signatures under one name, so
// use FeedView to obtain a types.RequestFeed.
func (s *MemoryStore) SubscribeRequests(_ context.Context, subjectID string, onSignal func()) (types.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}

	return s.feedSub.Add(subjectID, onSignal), nil
}

// SetDuty writes the duty flag the way the owner toggle does, keeping the
// stored timestamp, and notifies presence subscribers.
func (s *MemoryStore) SetDuty(subjectID string, onDuty bool) {
	s.mu.Lock()
	rec := s.records[subjectID]
	s.mu.Unlock()

	rec.SubjectID = subjectID
	rec.IsOnDuty = onDuty
	s.PutPresence(rec)
}

// PutPresence stores a full presence record and notifies presence subscribers.
func (s *MemoryStore) PutPresence(rec types.PresenceRecord) {
	s.mu.Lock()
	s.records[rec.SubjectID] = rec
	subs := s.presenceCallbacks(rec.SubjectID)
	s.mu.Unlock()

	onDuty := rec.IsOnDuty
	change := types.PresenceChange{SubjectID: rec.SubjectID, IsOnDuty: &onDuty}
	if !rec.LastTouchedAt.IsZero() {
		touched := rec.LastTouchedAt
		change.LastTouchedAt = &touched
	}
	for _, cb := range subs {
		cb(change)
	}
}

// StorePresence writes rec without notifying subscribers, like a change the
// feed missed while the client was disconnected.
func (s *MemoryStore) StorePresence(rec types.PresenceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.SubjectID] = rec
}

// Presence returns the stored record.
func (s *MemoryStore) Presence(subjectID string) (types.PresenceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[subjectID]

	return rec, ok
}

// EmitPresence delivers an arbitrary change event to the subject's subscribers.
func (s *MemoryStore) EmitPresence(change types.PresenceChange) {
	s.mu.Lock()
	subs := s.presenceCallbacks(change.SubjectID)
	s.mu.Unlock()

	for _, cb := range subs {
		cb(change)
	}
}

// PutRecipient upserts a recipient row and signals the subject's feed subscribers.
func (s *MemoryStore) PutRecipient(r *types.Recipient) {
	s.mu.Lock()
	if s.recipients[r.SubjectID] == nil {
		s.recipients[r.SubjectID] = make(map[string]*types.Recipient)
	}
	s.recipients[r.SubjectID][r.RecipientID] = cloneRecipient(r)
	subs := s.feedCallbacks(r.SubjectID)
	s.mu.Unlock()

	for _, cb := range subs {
		cb()
	}
}

// RemoveRecipient deletes a recipient row and signals the subject's feed subscribers.
func (s *MemoryStore) RemoveRecipient(subjectID, recipientID string) {
	s.mu.Lock()
	delete(s.recipients[subjectID], recipientID)
	subs := s.feedCallbacks(subjectID)
	s.mu.Unlock()

	for _, cb := range subs {
		cb()
	}
}

// Signal fires the subject's feed subscribers without changing any row.
func (s *MemoryStore) Signal(subjectID string) {
	s.mu.Lock()
	subs := s.feedCallbacks(subjectID)
	s.mu.Unlock()

	for _, cb := range subs {
		cb()
	}
}

// SetAssertError makes subsequent AssertAlive calls fail with err (nil clears it).
func (s *MemoryStore) SetAssertError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assertErr = err
}

// SetReadError makes subsequent ReadDuty calls fail with err (nil clears it).
func (s *MemoryStore) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readErr = err
}

// SetFetchError makes subsequent FetchCandidates calls fail with err (nil clears it).
func (s *MemoryStore) SetFetchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetchErr = err
}

// SetSubscribeError makes subsequent subscriptions fail with err (nil clears it).
func (s *MemoryStore) SetSubscribeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribeErr = err
}

// HoldAsserts makes AssertAlive block until the returned release function is called.
func (s *MemoryStore) HoldAsserts() (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.assertGate = gate
	s.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.assertGate == gate {
				s.assertGate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// AssertCalls returns the number of AssertAlive calls.
func (s *MemoryStore) AssertCalls() int64 { return s.assertCalls.Load() }

// ReadCalls returns the number of ReadDuty calls.
func (s *MemoryStore) ReadCalls() int64 { return s.readCalls.Load() }

// FetchCalls returns the number of FetchCandidates calls.
func (s *MemoryStore) FetchCalls() int64 { return s.fetchCalls.Load() }

// MaxConcurrentAsserts returns the highest number of AssertAlive calls observed in flight at once.
func (s *MemoryStore) MaxConcurrentAsserts() int64 { return s.maxInFlight.Load() }

// PresenceSubscribers returns the number of live presence subscriptions for the subject.
func (s *MemoryStore) PresenceSubscribers(subjectID string) int {
	return s.presenceSub.Count(subjectID)
}

// FeedSubscribers returns the number of live request-feed subscriptions for the subject.
func (s *MemoryStore) FeedSubscribers(subjectID string) int {
	return s.feedSub.Count(subjectID)
}

// FeedView adapts the store to types.RequestFeed.
func (s *MemoryStore) FeedView() types.RequestFeed {
	return memoryFeed{s: s}
}

type memoryFeed struct {
	s *MemoryStore
}

func (f memoryFeed) FetchCandidates(ctx context.Context, subjectID string, now time.Time) ([]*types.Recipient, error) {
	return f.s.FetchCandidates(ctx, subjectID, now)
}

func (f memoryFeed) Subscribe(ctx context.Context, subjectID string, onSignal func()) (types.Unsubscribe, error) {
	return f.s.SubscribeRequests(ctx, subjectID, onSignal)
}

func (s *MemoryStore) presenceCallbacks(subjectID string) []func(types.PresenceChange) {
	return s.presenceSub.Snapshot(subjectID)
}

func (s *MemoryStore) feedCallbacks(subjectID string) []func() {
	return s.feedSub.Snapshot(subjectID)
}

func cloneRecipient(r *types.Recipient) *types.Recipient {
	c := *r
	if r.Request != nil {
		req := *r.Request
		c.Request = &req
	}

	return &c
}

// PendingRecipient builds a pending recipient row for subjectID with a joined request.
func PendingRecipient(subjectID, recipientID string, createdAt time.Time) *types.Recipient {
	return &types.Recipient{
		RecipientID: recipientID,
		SubjectID:   subjectID,
		Status:      types.RecipientPending,
		Request: &types.Request{
			ID:        fmt.Sprintf("req-%s", recipientID),
			Status:    types.RequestPending,
			CreatedAt: createdAt,
		},
	}
}
