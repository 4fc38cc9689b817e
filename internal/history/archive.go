// Package history keeps every scored entry in a SQLite database so results
// survive a board reset and can be ranked across sessions.
package history

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
)

const slowQueryThreshold = 200 * time.Millisecond

// Review is one archived entry.
type Review struct {
	ID           uint   `gorm:"primaryKey"`
	EntryID      string `gorm:"uniqueIndex;not null"`
	BoardSession int    `gorm:"index:idx_reviews_session"`
	Artist       string `gorm:"index:idx_reviews_artist"`
	Track        string
	Genre        string
	Link         string
	Lyrics       int
	Vocals       int
	Production   int
	Originality  int
	Replay       *int
	Total        int       `gorm:"index:idx_reviews_total"`
	ReviewedAt   time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Entry converts the record back to a board entry.
func (r *Review) Entry() model.Entry {
	return model.Entry{
		ID:     r.EntryID,
		Artist: r.Artist,
		Track:  r.Track,
		Genre:  r.Genre,
		Link:   r.Link,
		Scores: model.Scores{
			Lyrics:      r.Lyrics,
			Vocals:      r.Vocals,
			Production:  r.Production,
			Originality: r.Originality,
			Replay:      r.Replay,
		},
		ReviewedAt: r.ReviewedAt,
	}
}

func newReview(boardSession int, e *model.Entry) Review {
	return Review{
		EntryID:      e.ID,
		BoardSession: boardSession,
		Artist:       e.Artist,
		Track:        e.Track,
		Genre:        e.Genre,
		Link:         e.Link,
		Lyrics:       e.Lyrics,
		Vocals:       e.Vocals,
		Production:   e.Production,
		Originality:  e.Originality,
		Replay:       e.Replay,
		Total:        e.Total(),
		ReviewedAt:   e.ReviewedAt.UTC(),
	}
}

// Archive is the review database.
type Archive struct {
	db       *gorm.DB
	log      logger.Logger
	recorder metrics.Recorder
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger. SQL is logged through it at trace level.
func WithLogger(l logger.Logger) Option {
	return func(a *Archive) { a.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *Archive) { a.recorder = r }
}

// Open opens or creates the database at path and migrates the schema.
// ":memory:" opens a private in-memory database.
func Open(path string, opts ...Option) (*Archive, error) {
	a := &Archive{
		log:      logger.Global().Module("history"),
		recorder: metrics.NoOpRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}

	if path == "" {
		return nil, errors.Newf("history database path is empty").
			Component("history").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.New(err).
				Component("history").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(a.log, slowQueryThreshold),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("history").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("path", path).
			Build()
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := db.AutoMigrate(&Review{}); err != nil {
		return nil, errors.New(err).
			Component("history").
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}

	a.db = db
	a.log.Debug("history database ready", logger.String("path", path))
	return a, nil
}

// Record stores e, replacing an earlier record of the same entry.
func (a *Archive) Record(ctx context.Context, boardSession int, e *model.Entry) error {
	if e == nil || e.ID == "" {
		return errors.Newf("entry without id cannot be archived").
			Component("history").
			Category(errors.CategoryValidation).
			Build()
	}

	rec := newReview(boardSession, e)
	start := time.Now()
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entry_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"board_session", "artist", "track", "genre", "link",
			"lyrics", "vocals", "production", "originality", "replay",
			"total", "reviewed_at", "updated_at",
		}),
	}).Create(&rec).Error
	a.recorder.RecordDuration(metrics.OpArchive, time.Since(start).Seconds())
	if err != nil {
		a.recorder.RecordOperation(metrics.OpArchive, metrics.StatusError)
		a.recorder.RecordError(metrics.OpArchive, "record")
		return a.dbError(err, "record", e.ID)
	}
	a.recorder.RecordOperation(metrics.OpArchive, metrics.StatusSuccess)
	return nil
}

// Forget removes the record of an entry. Unknown ids are not an error.
func (a *Archive) Forget(ctx context.Context, entryID string) error {
	err := a.db.WithContext(ctx).Where("entry_id = ?", entryID).Delete(&Review{}).Error
	if err != nil {
		a.recorder.RecordError(metrics.OpArchive, "forget")
		return a.dbError(err, "forget", entryID)
	}
	return nil
}

// List returns the records of one board session, most recent first.
// A session of 0 lists every record.
func (a *Archive) List(ctx context.Context, boardSession int) ([]Review, error) {
	q := a.db.WithContext(ctx).Order("reviewed_at DESC").Order("id DESC")
	if boardSession > 0 {
		q = q.Where("board_session = ?", boardSession)
	}
	var out []Review
	if err := q.Find(&out).Error; err != nil {
		return nil, a.dbError(err, "list", "")
	}
	return out, nil
}

// Top returns up to limit records scoring at least minTotal across all
// sessions, using the board ordering.
func (a *Archive) Top(ctx context.Context, limit, minTotal int) ([]Review, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Review
	err := a.db.WithContext(ctx).
		Where("total >= ?", minTotal).
		Order("total DESC").
		Order("originality DESC").
		Order("artist COLLATE NOCASE ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, a.dbError(err, "top", "")
	}
	return out, nil
}

// Count returns the number of archived records.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.WithContext(ctx).Model(&Review{}).Count(&n).Error; err != nil {
		return 0, a.dbError(err, "count", "")
	}
	return n, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return a.dbError(err, "close", "")
	}
	if err := sqlDB.Close(); err != nil {
		return a.dbError(err, "close", "")
	}
	return nil
}

func (a *Archive) dbError(err error, op, entryID string) error {
	b := errors.New(err).
		Component("history").
		Category(errors.CategoryDatabase).
		Context("operation", op)
	if entryID != "" {
		b = b.Context("entry_id", entryID)
	}
	return b.Build()
}
