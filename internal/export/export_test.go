package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/session"
)

var exportTime = time.Date(2026, 10, 19, 22, 15, 30, 0, time.UTC)

type memTarget struct {
	name string
	err  error

	mu       sync.Mutex
	payloads [][]byte
	closed   bool
}

func (m *memTarget) Name() string { return m.name }

func (m *memTarget) Publish(_ context.Context, artifact []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, append([]byte(nil), artifact...))
	return nil
}

func (m *memTarget) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memTarget) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func (m *memTarget) lastArtifact(t *testing.T) Artifact {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.payloads)
	var a Artifact
	require.NoError(t, json.Unmarshal(m.payloads[len(m.payloads)-1], &a))
	return a
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// lockedState is a StateSource safe to read from the timer goroutine.
type lockedState struct {
	mu    sync.Mutex
	state *session.State
}

func (l *lockedState) get() *session.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

func (l *lockedState) update(fn func(*session.State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.state)
}

func scored(artist string, l, v, p, o int) model.Entry {
	return model.Entry{
		ID:         artist,
		Artist:     artist,
		Track:      artist + " song",
		Genre:      "Rock",
		Scores:     model.Scores{Lyrics: l, Vocals: v, Production: p, Originality: o},
		ReviewedAt: exportTime,
	}
}

func TestBuildArtifact(t *testing.T) {
	t.Parallel()

	state := session.Default()
	state.BoardSessionNum = 7
	state.Entries = []model.Entry{
		scored("Low", 5, 5, 5, 5),
		scored("Mike Stadium", 9, 8, 8, 9),
		scored("ana", 8, 9, 8, 9),
	}
	state.NowPlaying = &model.Submission{Artist: "Zed", Track: "Now", Status: model.StatusReviewing}

	a := Build(state, BuildOptions{Limit: 50, MinTotal: 30, SubmissionNote: "open", Location: time.UTC}, exportTime)

	assert.Equal(t, "Board Session 007 • Oct 19, 2026", a.BoardSession)
	assert.Equal(t, "Vocal/Delivery", a.Scoring.V)
	assert.Equal(t, "open", a.SubmissionNote)
	require.NotNil(t, a.NowPlaying)
	assert.Equal(t, model.StatusReviewing, a.NowPlaying.Status)

	require.Len(t, a.Leaderboard, 2, "entries below the minimum are excluded")
	assert.Equal(t, 1, a.Leaderboard[0].Rank)
	assert.Equal(t, "ana", a.Leaderboard[0].Artist)
	assert.Equal(t, 2, a.Leaderboard[1].Rank)
	assert.Equal(t, 34, a.Leaderboard[1].Total)
}

func TestBuildArtifactReviewedAt(t *testing.T) {
	t.Parallel()

	legacy := scored("Legacy", 9, 9, 9, 9)
	legacy.ReviewedAt = time.Time{}
	state := session.Default()
	state.Entries = []model.Entry{scored("Ana", 8, 8, 8, 8), legacy}

	a := Build(state, BuildOptions{Limit: 50, MinTotal: 30}, exportTime)
	require.Len(t, a.Leaderboard, 2)
	assert.Equal(t, "Legacy", a.Leaderboard[0].Artist)
	assert.Empty(t, a.Leaderboard[0].ReviewedAt, "unknown review time exports as empty")
	assert.Equal(t, exportTime.UTC().Truncate(time.Second).Format(time.RFC3339), a.Leaderboard[1].ReviewedAt)

	data, err := a.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reviewed_at": ""`)
	assert.NotContains(t, string(data), "0001-01-01")
}

func TestBuildArtifactCapsAtLimit(t *testing.T) {
	t.Parallel()

	state := session.Default()
	for i := range 60 {
		state.Entries = append(state.Entries, scored(fmt.Sprintf("artist-%02d", i), 8, 8, 8, 8))
	}

	a := Build(state, BuildOptions{Limit: 50, MinTotal: 30}, exportTime)
	require.Len(t, a.Leaderboard, 50)
	for i, row := range a.Leaderboard {
		assert.Equal(t, i+1, row.Rank)
	}
}

func TestArtifactEncoding(t *testing.T) {
	t.Parallel()

	state := session.Default()
	state.Entries = []model.Entry{scored("A", 8, 8, 8, 8)}
	a := Build(state, BuildOptions{Limit: 50, MinTotal: 30}, exportTime.Add(250*time.Millisecond))

	data, err := a.Encode()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2026-10-19T22:15:30Z", doc["updated_at"])
	assert.Nil(t, doc["now_playing"])
	assert.Contains(t, doc, "scoring")

	rows, ok := doc["leaderboard"].([]any)
	require.True(t, ok)
	row, ok := rows[0].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]string{"rank", "artist", "track", "genre", "total", "lyrics", "vocals", "production", "originality", "reviewed_at"},
		keys(row))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestPublisherFanOut(t *testing.T) {
	t.Parallel()

	good := &memTarget{name: "local"}
	bad := &memTarget{name: "ftp", err: fmt.Errorf("connection refused")}
	p := NewPublisher([]Target{good, bad}, quietLogger(), nil)

	err := p.Publish(t.Context(), []byte(`{}`))
	require.Error(t, err)
	assert.True(t, errors.IsExportIO(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, good.count(), "a failing target must not block the others")

	require.NoError(t, p.Close())
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
	assert.Equal(t, []string{"local", "ftp"}, p.Targets())
}

func TestDebounceCoalescesRequests(t *testing.T) {
	t.Parallel()

	target := &memTarget{name: "mem"}
	src := &lockedState{state: session.Default()}
	e := New(Config{Delay: 30 * time.Millisecond, Build: BuildOptions{MinTotal: 30}},
		src.get,
		NewPublisher([]Target{target}, quietLogger(), nil),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return exportTime }),
	)

	for i := 1; i <= 5; i++ {
		src.update(func(s *session.State) {
			s.BoardSessionNum = i
			s.Entries = append(s.Entries, scored(fmt.Sprintf("artist-%d", i), 8, 8, 8, 8))
		})
		e.RequestExport()
	}
	assert.True(t, e.Pending())

	require.Eventually(t, func() bool { return target.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, target.count(), "five requests produce one flush")
	assert.False(t, e.Pending())

	a := target.lastArtifact(t)
	assert.Contains(t, a.BoardSession, "Board Session 005")
	assert.Len(t, a.Leaderboard, 5)

	require.NoError(t, e.Close(t.Context()))
}

func TestFlushIsNoOpWhenClean(t *testing.T) {
	t.Parallel()

	target := &memTarget{name: "mem"}
	e := New(Config{}, session.Default, NewPublisher([]Target{target}, quietLogger(), nil), WithLogger(quietLogger()))

	e.Flush(t.Context())
	assert.Zero(t, target.count())
	require.NoError(t, e.Close(t.Context()))
	assert.Zero(t, target.count())
}

func TestFlushFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	target := &memTarget{name: "mem", err: fmt.Errorf("disk full")}
	e := New(Config{Delay: time.Hour}, session.Default, NewPublisher([]Target{target}, quietLogger(), nil), WithLogger(quietLogger()))

	e.RequestExport()
	e.Flush(t.Context())
	assert.False(t, e.Pending(), "dirty is cleared even when publishing fails")

	err := e.ExportNow(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsExportIO(err))

	require.NoError(t, e.Close(t.Context()))
}

func TestCloseFlushesPendingSynchronously(t *testing.T) {
	t.Parallel()

	target := &memTarget{name: "mem"}
	e := New(Config{Delay: time.Hour}, session.Default, NewPublisher([]Target{target}, quietLogger(), nil), WithLogger(quietLogger()))

	e.RequestExport()
	require.NoError(t, e.Close(t.Context()))
	assert.Equal(t, 1, target.count())
	assert.True(t, target.closed)

	e.RequestExport()
	assert.False(t, e.Pending(), "requests after close are ignored")
	require.NoError(t, e.Close(t.Context()))
}

func TestSchedulerReceivesTimerWork(t *testing.T) {
	t.Parallel()

	work := make(chan func(), 4)
	target := &memTarget{name: "mem"}
	e := New(Config{Delay: 10 * time.Millisecond}, session.Default,
		NewPublisher([]Target{target}, quietLogger(), nil),
		WithLogger(quietLogger()),
		WithScheduler(func(fn func()) bool { work <- fn; return true }),
	)

	e.RequestExport()
	select {
	case fn := <-work:
		assert.Zero(t, target.count(), "nothing runs until the owner executes the work")
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timer work was never scheduled")
	}
	assert.Equal(t, 1, target.count())
	assert.NotNil(t, e.Last())

	require.NoError(t, e.Close(t.Context()))
}
