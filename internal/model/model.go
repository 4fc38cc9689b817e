// Package model defines the review board's domain records: queued
// submissions, scored leaderboard entries and the paid-priority badge.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the review state of a Submission.
type Status string

// Local queue statuses.
const (
	StatusQueued    Status = "Queued"
	StatusReviewing Status = "Reviewing"
	StatusReviewed  Status = "Reviewed"
)

// Remote service statuses.
const (
	StatusNew      Status = "NEW"
	StatusInReview Status = "IN_REVIEW"
	StatusDone     Status = "DONE"
)

var statusOrder = map[Status]int{
	StatusQueued:    0,
	StatusNew:       0,
	StatusReviewing: 1,
	StatusInReview:  1,
	StatusReviewed:  2,
	StatusDone:      2,
}

// ParseStatus accepts any known status, case-insensitively, with '-' or ' ' for '_'.
func ParseStatus(s string) (Status, bool) {
	norm := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s)))
	for status := range statusOrder {
		if strings.ToUpper(string(status)) == norm {
			return status, true
		}
	}
	return "", false
}

// IsForward reports whether moving from one status to another follows the
// Queued -> Reviewing -> Reviewed order. Unknown statuses are never forward.
func IsForward(from, to Status) bool {
	f, okFrom := statusOrder[from]
	t, okTo := statusOrder[to]
	return okFrom && okTo && t >= f
}

// PaymentStatus is the payment state reported for a priority purchase.
type PaymentStatus string

const (
	PaymentNone    PaymentStatus = "NONE"
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// PaidType is the kind of priority purchased.
type PaidType string

const (
	PaidTypeNone   PaidType = ""
	PaidTypeSkip   PaidType = "SKIP"
	PaidTypeUpNext PaidType = "UPNEXT"
)

// Submission is a track waiting in, or moving through, the review queue.
type Submission struct {
	ID            string        `json:"id,omitempty"`
	Artist        string        `json:"artist" validate:"required,max=200"`
	Track         string        `json:"track" validate:"required,max=200"`
	Genre         string        `json:"genre" validate:"max=100"`
	Link          string        `json:"link" validate:"max=2048"`
	Notes         string        `json:"notes"`
	SubmittedAt   time.Time     `json:"submitted_at"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaidType      PaidType      `json:"paid_type"`

	// Remote-only fields.
	ClaimedBy string     `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	Priority  int        `json:"priority,omitempty"`
	Paid      int        `json:"paid,omitempty"`
}

// Badge returns the queue badge for the submission's payment state.
func (s *Submission) Badge() string {
	return PaidBadge(s.PaymentStatus, s.PaidType)
}

// Scores holds the rubric categories, each 0..10. Replay is only scored by
// the remote five-category rubric.
type Scores struct {
	Lyrics      int  `json:"lyrics" validate:"min=0,max=10"`
	Vocals      int  `json:"vocals" validate:"min=0,max=10"`
	Production  int  `json:"production" validate:"min=0,max=10"`
	Originality int  `json:"originality" validate:"min=0,max=10"`
	Replay      *int `json:"replay,omitempty" validate:"omitempty,min=0,max=10"`
}

// Total is the sum of all scored categories.
func (s Scores) Total() int {
	total := s.Lyrics + s.Vocals + s.Production + s.Originality
	if s.Replay != nil {
		total += *s.Replay
	}
	return total
}

// Entry is one scored review on the leaderboard. Entries are never edited
// after creation; Total is always derived from the category scores.
type Entry struct {
	ID     string `json:"id"`
	Artist string `json:"artist"`
	Track  string `json:"track"`
	Genre  string `json:"genre"`
	Link   string `json:"link"`
	Scores
	ReviewedAt time.Time `json:"reviewed_at"`
}

// NewEntry copies the display fields of sub into a new Entry with a fresh ID.
func NewEntry(sub *Submission, scores Scores, reviewedAt time.Time) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Artist:     sub.Artist,
		Track:      sub.Track,
		Genre:      strings.TrimSpace(sub.Genre),
		Link:       sub.Link,
		Scores:     scores,
		ReviewedAt: Timestamp(reviewedAt),
	}
}

// SameRecord reports whether two entries describe the same review by value,
// ignoring identity.
func (e *Entry) SameRecord(o *Entry) bool {
	return e.Artist == o.Artist &&
		e.Track == o.Track &&
		e.Genre == o.Genre &&
		e.Total() == o.Total() &&
		e.ReviewedAt.Equal(o.ReviewedAt)
}

// AsNowPlaying builds the banner snapshot shown when a leaderboard row is replayed.
func (e *Entry) AsNowPlaying() Submission {
	return Submission{
		Artist:        e.Artist,
		Track:         e.Track,
		Genre:         e.Genre,
		Link:          e.Link,
		Status:        StatusReviewed,
		SubmittedAt:   e.ReviewedAt,
		PaymentStatus: PaymentNone,
		PaidType:      PaidTypeNone,
	}
}

// Timestamp normalizes t to UTC with whole-second precision, the resolution
// used in the session file and the exported artifact.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Clean trims operator-entered text.
func Clean(s string) string {
	return strings.TrimSpace(s)
}
