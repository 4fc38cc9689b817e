package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/model"
)

var fixedNow = time.Date(2026, 10, 19, 19, 30, 15, 500, time.FixedZone("EDT", -4*3600))

func newTestManager(t *testing.T) (*Manager, *[]ChangeKind) {
	t.Helper()
	var changes []ChangeKind
	m := New(nil, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithChangeHook(func(k ChangeKind) { changes = append(changes, k) }),
	)
	return m, &changes
}

func TestAdd(t *testing.T) {
	t.Parallel()

	m, changes := newTestManager(t)
	sub, err := m.Add("  Ana ", "Sky", " Pop ", "")
	require.NoError(t, err)

	assert.Equal(t, "Ana", sub.Artist)
	assert.Equal(t, "Pop", sub.Genre)
	assert.Equal(t, model.StatusQueued, sub.Status)
	assert.Equal(t, model.PaymentNone, sub.PaymentStatus)
	assert.Equal(t, model.PaidTypeNone, sub.PaidType)
	assert.Equal(t, time.UTC, sub.SubmittedAt.Location())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []ChangeKind{ChangeQueue}, *changes)
}

func TestAddRejectsBlank(t *testing.T) {
	t.Parallel()

	m, changes := newTestManager(t)
	_, err := m.Add("   ", "Sky", "", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = m.Add("Ana", "", "", "")
	assert.True(t, errors.IsValidation(err))

	assert.Zero(t, m.Len())
	assert.Empty(t, *changes)
}

func TestRemoveIsStable(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	for _, artist := range []string{"A", "B", "C"} {
		_, err := m.Add(artist, "t", "", "")
		require.NoError(t, err)
	}

	removed, err := m.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, "B", removed.Artist)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Artist)
	assert.Equal(t, "C", items[1].Artist)
}

func TestPositionOutOfRange(t *testing.T) {
	t.Parallel()

	m, changes := newTestManager(t)
	_, err := m.Add("A", "t", "", "")
	require.NoError(t, err)
	*changes = nil

	for _, pos := range []int{-1, 1, 99} {
		_, err := m.Remove(pos)
		assert.True(t, errors.IsIndex(err), "remove %d", pos)
		_, err = m.SetStatus(pos, model.StatusReviewed)
		assert.True(t, errors.IsIndex(err), "set status %d", pos)
		_, err = m.EditNotes(pos, "x")
		assert.True(t, errors.IsIndex(err), "edit notes %d", pos)
	}
	assert.Equal(t, 1, m.Len())
	assert.Empty(t, *changes)
}

func TestSetStatusKeepsNotesAndAllowsOverride(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	_, err := m.Add("A", "t", "", "")
	require.NoError(t, err)

	_, err = m.EditNotes(0, "  great hook ")
	require.NoError(t, err)
	_, err = m.SetStatus(0, model.StatusReviewed)
	require.NoError(t, err)

	sub, err := m.SetStatus(0, model.StatusQueued)
	require.NoError(t, err, "backward move is an operator override")
	assert.Equal(t, model.StatusQueued, sub.Status)
	assert.Equal(t, "great hook", sub.Notes)

	_, err = m.SetStatus(0, model.Status("Lost"))
	assert.True(t, errors.IsValidation(err))
}

func TestSetStatusRefreshesNowPlaying(t *testing.T) {
	t.Parallel()

	m, changes := newTestManager(t)
	_, err := m.Add("A", "t", "", "")
	require.NoError(t, err)
	_, err = m.PlayAt(0)
	require.NoError(t, err)
	*changes = nil

	_, err = m.SetStatus(0, model.StatusReviewing)
	require.NoError(t, err)

	np := m.NowPlaying()
	require.NotNil(t, np)
	assert.Equal(t, model.StatusReviewing, np.Status)
	assert.Equal(t, []ChangeKind{ChangeQueue, ChangeNowPlaying}, *changes)
}

func TestNowPlayingIsSnapshot(t *testing.T) {
	t.Parallel()

	m, changes := newTestManager(t)
	sub := model.Submission{Artist: "A", Track: "t"}
	m.SetNowPlaying(&sub)
	sub.Artist = "changed"

	np := m.NowPlaying()
	require.NotNil(t, np)
	assert.Equal(t, "A", np.Artist)

	np.Artist = "also changed"
	assert.Equal(t, "A", m.NowPlaying().Artist)

	m.SetNowPlaying(nil)
	assert.Nil(t, m.NowPlaying())
	assert.Equal(t, []ChangeKind{ChangeNowPlaying, ChangeNowPlaying}, *changes)
}

func TestClearAndReplace(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	_, err := m.Add("A", "t", "", "")
	require.NoError(t, err)
	_, err = m.PlayAt(0)
	require.NoError(t, err)

	m.Clear()
	assert.Zero(t, m.Len())
	assert.Nil(t, m.NowPlaying())

	m.Replace([]model.Submission{{ID: "r1", Artist: "R", Track: "x"}})
	assert.Equal(t, 1, m.Len())
}

func TestQueuePaidBadge(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "⭐ UP NEXT", PaidBadge("paid", "upnext"))
	assert.Equal(t, "💸 SKIP", PaidBadge(model.PaymentPaid, model.PaidTypeSkip))
	assert.Equal(t, "⏳ PENDING", PaidBadge(model.PaymentPending, model.PaidTypeSkip))
	assert.Empty(t, PaidBadge(model.PaymentNone, model.PaidTypeUpNext))
}

func TestSetPayment(t *testing.T) {
	t.Parallel()

	m, changes := newTestManager(t)
	_, err := m.Add("Ana", "Sky", "", "")
	require.NoError(t, err)
	*changes = nil

	sub, err := m.SetPayment(0, " paid ", "upNext")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, sub.PaymentStatus)
	assert.Equal(t, model.PaidTypeUpNext, sub.PaidType)
	assert.Equal(t, []ChangeKind{ChangeQueue}, *changes)

	sub, err = m.SetPayment(0, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentNone, sub.PaymentStatus, "empty status means none")
}

func TestSetPaymentRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	m, changes := newTestManager(t)
	_, err := m.Add("Ana", "Sky", "", "")
	require.NoError(t, err)
	*changes = nil

	tests := []struct {
		name string
		ps   model.PaymentStatus
		pt   model.PaidType
	}{
		{"unknown status and type", "BOGUS", "WHATEVER"},
		{"unknown status", "REFUNDED", model.PaidTypeSkip},
		{"unknown type", model.PaymentPaid, "FRONT"},
	}
	for _, tt := range tests {
		_, err := m.SetPayment(0, tt.ps, tt.pt)
		require.Error(t, err, tt.name)
		assert.True(t, errors.IsValidation(err), tt.name)
	}

	sub, err := m.Get(0)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentNone, sub.PaymentStatus)
	assert.Equal(t, model.PaidTypeNone, sub.PaidType)
	assert.Empty(t, *changes)
}
