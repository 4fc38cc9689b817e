// Package queue holds the ordered list of submissions waiting for review
// and the now-playing snapshot. Queue position is the local identity of a
// submission, so removal is a stable delete by position.
package queue

import (
	"slices"
	"time"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/model"
)

// ChangeKind identifies what a mutation touched.
type ChangeKind int

const (
	ChangeQueue ChangeKind = iota
	ChangeNowPlaying
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeQueue:
		return "queue"
	case ChangeNowPlaying:
		return "now_playing"
	default:
		return "unknown"
	}
}

// ChangeFunc is called after every successful mutation.
type ChangeFunc func(kind ChangeKind)

// Manager is not safe for concurrent use; the board engine serializes
// access to it.
type Manager struct {
	items      []model.Submission
	nowPlaying *model.Submission
	onChange   ChangeFunc
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used to stamp new submissions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithChangeHook registers the function called after each mutation.
func WithChangeHook(fn ChangeFunc) Option {
	return func(m *Manager) { m.onChange = fn }
}

// New returns a Manager seeded with items and nowPlaying. Both are copied.
func New(items []model.Submission, nowPlaying *model.Submission, opts ...Option) *Manager {
	m := &Manager{
		items: slices.Clone(items),
		now:   time.Now,
	}
	if nowPlaying != nil {
		np := *nowPlaying
		m.nowPlaying = &np
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) changed(kind ChangeKind) {
	if m.onChange != nil {
		m.onChange(kind)
	}
}

func indexError(op string, pos, length int) error {
	return errors.Newf("%s: position %d out of range (queue has %d)", op, pos, length).
		Component("queue").
		Category(errors.CategoryIndex).
		Context("position", pos).
		Context("length", length).
		Build()
}

func (m *Manager) checkPosition(op string, pos int) error {
	if pos < 0 || pos >= len(m.items) {
		return indexError(op, pos, len(m.items))
	}
	return nil
}

// Add appends a new Queued submission stamped with the current UTC time.
// Blank artist or track returns a validation error and leaves the queue as is.
func (m *Manager) Add(artist, track, genre, link string) (model.Submission, error) {
	sub, err := model.NewSubmission(artist, track, genre, link, m.now())
	if err != nil {
		return model.Submission{}, err
	}
	m.items = append(m.items, sub)
	m.changed(ChangeQueue)
	return sub, nil
}

// Remove deletes the submission at pos, keeping the order of the others.
func (m *Manager) Remove(pos int) (model.Submission, error) {
	if err := m.checkPosition("remove", pos); err != nil {
		return model.Submission{}, err
	}
	removed := m.items[pos]
	m.items = slices.Delete(m.items, pos, pos+1)
	m.changed(ChangeQueue)
	return removed, nil
}

// SetStatus moves the submission at pos to status. Backward moves are
// allowed as an operator override. Notes are left untouched.
// When the submission is the one now playing, the banner is refreshed.
func (m *Manager) SetStatus(pos int, status model.Status) (model.Submission, error) {
	if err := m.checkPosition("set status", pos); err != nil {
		return model.Submission{}, err
	}
	parsed, ok := model.ParseStatus(string(status))
	if !ok {
		return model.Submission{}, errors.Newf("unknown status %q", status).
			Component("queue").
			Category(errors.CategoryValidation).
			Build()
	}

	wasPlaying := m.isNowPlaying(&m.items[pos])
	m.items[pos].Status = parsed
	m.changed(ChangeQueue)

	if wasPlaying {
		m.setNowPlaying(&m.items[pos])
	}
	return m.items[pos], nil
}

// EditNotes replaces the notes of the submission at pos.
func (m *Manager) EditNotes(pos int, notes string) (model.Submission, error) {
	if err := m.checkPosition("edit notes", pos); err != nil {
		return model.Submission{}, err
	}
	m.items[pos].Notes = model.Clean(notes)
	m.changed(ChangeQueue)
	return m.items[pos], nil
}

// SetPayment records the payment outcome for the submission at pos. Values
// are normalized; unknown ones leave the queue unchanged.
func (m *Manager) SetPayment(pos int, ps model.PaymentStatus, pt model.PaidType) (model.Submission, error) {
	if err := m.checkPosition("set payment", pos); err != nil {
		return model.Submission{}, err
	}
	ps, pt, err := model.ParsePayment(ps, pt)
	if err != nil {
		return model.Submission{}, err
	}
	m.items[pos].PaymentStatus = ps
	m.items[pos].PaidType = pt
	m.changed(ChangeQueue)
	return m.items[pos], nil
}

// PlayAt puts the submission at pos on the now-playing banner.
func (m *Manager) PlayAt(pos int) (model.Submission, error) {
	if err := m.checkPosition("play", pos); err != nil {
		return model.Submission{}, err
	}
	m.setNowPlaying(&m.items[pos])
	return m.items[pos], nil
}

// SetNowPlaying stores a copy of sub as the banner; nil clears it.
func (m *Manager) SetNowPlaying(sub *model.Submission) {
	m.setNowPlaying(sub)
}

func (m *Manager) setNowPlaying(sub *model.Submission) {
	if sub == nil {
		m.nowPlaying = nil
	} else {
		snap := *sub
		m.nowPlaying = &snap
	}
	m.changed(ChangeNowPlaying)
}

// isNowPlaying matches by submission time and title since local
// submissions carry no ID.
func (m *Manager) isNowPlaying(sub *model.Submission) bool {
	np := m.nowPlaying
	if np == nil {
		return false
	}
	if np.ID != "" || sub.ID != "" {
		return np.ID == sub.ID
	}
	return np.SubmittedAt.Equal(sub.SubmittedAt) &&
		np.Artist == sub.Artist &&
		np.Track == sub.Track
}

// NowPlaying returns a copy of the banner snapshot, or nil.
func (m *Manager) NowPlaying() *model.Submission {
	if m.nowPlaying == nil {
		return nil
	}
	np := *m.nowPlaying
	return &np
}

// Get returns the submission at pos.
func (m *Manager) Get(pos int) (model.Submission, error) {
	if err := m.checkPosition("get", pos); err != nil {
		return model.Submission{}, err
	}
	return m.items[pos], nil
}

// Items returns a copy of the queue in order.
func (m *Manager) Items() []model.Submission {
	return slices.Clone(m.items)
}

// Len returns the number of queued submissions.
func (m *Manager) Len() int {
	return len(m.items)
}

// Clear empties the queue and the banner.
func (m *Manager) Clear() {
	m.items = nil
	m.nowPlaying = nil
	m.changed(ChangeQueue)
	m.changed(ChangeNowPlaying)
}

// Replace swaps the whole queue, as when a remote poll delivers a fresh list.
func (m *Manager) Replace(items []model.Submission) {
	m.items = slices.Clone(items)
	m.changed(ChangeQueue)
}

// PaidBadge returns the display badge for a payment state.
func PaidBadge(ps model.PaymentStatus, pt model.PaidType) string {
	return model.PaidBadge(ps, pt)
}
