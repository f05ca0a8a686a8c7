// Package sqlstore implements PresenceStore and RequestFeed on a relational
// database through GORM, with SQLite as the bundled driver.
//
// Change feeds are served by an in-process notifier: subscribers observe the
// writes made through the same Store. Deployments where other processes write
// to the database should use a store with a server-side feed instead.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/fanout"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

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

// Store is a PresenceStore backed by GORM. Its request feed is available through Feed.
type Store struct {
	db     *gorm.DB
	logger types.Logger

	presenceSubs *fanout.Registry[func(types.PresenceChange)]
	feedSubs     *fanout.Registry[func()]
}

var (
	_ types.PresenceStore = (*Store)(nil)
	_ types.RequestFeed   = (*Feed)(nil)
)

// Open opens (creating if needed) a SQLite database file and migrates it.
//
// Example:
//
//	store, err := sqlstore.Open(filepath.Join(dataDir, "medy.db"))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),

		// Recipients may reference requests the viewer cannot see.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return New(db, opts...)
}

// New wraps an existing GORM handle and migrates the schema.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if err := db.AutoMigrate(&presenceRow{}, &requestRow{}, &recipientRow{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	s := &Store{
		db:           db,
		logger:       logger.NewNop(),
		presenceSubs: fanout.New[func(types.PresenceChange)](),
		feedSubs:     fanout.New[func()](),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Feed returns the RequestFeed view of the store.
func (s *Store) Feed() *Feed {
	return &Feed{s: s}
}

// ReadDuty implements types.PresenceStore.
func (s *Store) ReadDuty(ctx context.Context, subjectID string) (*types.DutyState, error) {
	var row presenceRow
	err := s.db.WithContext(ctx).First(&row, "subject_id = ?", subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read duty for %s: %w", subjectID, err)
	}

	return &types.DutyState{SubjectID: subjectID, IsOnDuty: row.IsOnDuty}, nil
}

// AssertAlive implements types.PresenceStore with a single conditional UPDATE.
func (s *Store) AssertAlive(ctx context.Context, subjectID string, expectedCurrentDuty bool, at time.Time) (types.AssertResult, error) {
	res := s.db.WithContext(ctx).
		Model(&presenceRow{}).
		Where("subject_id = ? AND is_on_duty = ?", subjectID, expectedCurrentDuty).
		Updates(map[string]any{"is_on_duty": true, "last_touched_at": at})
	if res.Error != nil {
		return types.AssertResult{}, fmt.Errorf("assert alive for %s: %w", subjectID, res.Error)
	}

	if res.RowsAffected == 0 {
		duty, err := s.ReadDuty(ctx, subjectID)
		if err != nil {
			return types.AssertResult{}, err
		}

		return types.AssertResult{IsOnDuty: duty != nil && duty.IsOnDuty}, nil
	}

	onDuty := true
	s.notifyPresence(types.PresenceChange{SubjectID: subjectID, IsOnDuty: &onDuty, LastTouchedAt: &at})

	return types.AssertResult{IsOnDuty: true, Applied: true, TouchedAt: at}, nil
}

// Subscribe implements types.PresenceStore.
func (s *Store) Subscribe(_ context.Context, subjectID string, onChange func(types.PresenceChange)) (types.Unsubscribe, error) {
	return s.presenceSubs.Add(subjectID, onChange), nil
}

// PutPresence upserts a full presence record, as the owner's duty toggle does.
func (s *Store) PutPresence(ctx context.Context, rec types.PresenceRecord) error {
	row := presenceRow{SubjectID: rec.SubjectID, IsOnDuty: rec.IsOnDuty, LastTouchedAt: optionalTime(rec.LastTouchedAt)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("put presence for %s: %w", rec.SubjectID, err)
	}

	onDuty := rec.IsOnDuty
	change := types.PresenceChange{SubjectID: rec.SubjectID, IsOnDuty: &onDuty, LastTouchedAt: row.LastTouchedAt}
	s.notifyPresence(change)

	return nil
}

// DeletePresence removes a subject's presence record.
func (s *Store) DeletePresence(ctx context.Context, subjectID string) error {
	if err := s.db.WithContext(ctx).Delete(&presenceRow{}, "subject_id = ?", subjectID).Error; err != nil {
		return fmt.Errorf("delete presence for %s: %w", subjectID, err)
	}

	s.notifyPresence(types.PresenceChange{SubjectID: subjectID, Deleted: true})

	return nil
}

func (s *Store) notifyPresence(change types.PresenceChange) {
	for _, cb := range s.presenceSubs.Snapshot(change.SubjectID) {
		cb(change)
	}
}

func (s *Store) notifyFeed(subjectIDs ...string) {
	for _, cb := range s.feedSubs.Snapshot(subjectIDs...) {
		cb()
	}
}
