package history

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
)

func openMemory(t *testing.T, opts ...Option) *Archive {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))}, opts...)
	a, err := Open(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func entry(id, artist string, l, v, p, o int, at time.Time) model.Entry {
	return model.Entry{
		ID:         id,
		Artist:     artist,
		Track:      "Track " + id,
		Genre:      "Rock",
		Scores:     model.Scores{Lyrics: l, Vocals: v, Production: p, Originality: o},
		ReviewedAt: at,
	}
}

var base = time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC)

func TestRecordAndList(t *testing.T) {
	a := openMemory(t)
	ctx := t.Context()

	first := entry("e1", "Ana", 9, 8, 8, 9, base)
	second := entry("e2", "Bo", 5, 5, 5, 5, base.Add(time.Minute))
	other := entry("e3", "Cy", 7, 7, 7, 7, base.Add(2*time.Minute))

	require.NoError(t, a.Record(ctx, 7, &first))
	require.NoError(t, a.Record(ctx, 7, &second))
	require.NoError(t, a.Record(ctx, 8, &other))

	got, err := a.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e2", got[0].EntryID)
	assert.Equal(t, "e1", got[1].EntryID)
	assert.Equal(t, 34, got[1].Total)

	all, err := a.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	back := got[1].Entry()
	assert.Equal(t, first.Scores, back.Scores)
	assert.True(t, first.ReviewedAt.Equal(back.ReviewedAt))
}

func TestRecordReplacesSameEntry(t *testing.T) {
	a := openMemory(t)
	ctx := t.Context()

	e := entry("e1", "Ana", 5, 5, 5, 5, base)
	require.NoError(t, a.Record(ctx, 7, &e))

	replay := 6
	e.Lyrics = 9
	e.Replay = &replay
	require.NoError(t, a.Record(ctx, 7, &e))

	n, err := a.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := a.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30, got[0].Total)
	require.NotNil(t, got[0].Replay)
	assert.Equal(t, 6, *got[0].Replay)
}

func TestRecordRejectsEntryWithoutID(t *testing.T) {
	a := openMemory(t)
	e := entry("", "Ana", 5, 5, 5, 5, base)
	err := a.Record(t.Context(), 1, &e)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestForget(t *testing.T) {
	a := openMemory(t)
	ctx := t.Context()

	e := entry("e1", "Ana", 9, 8, 8, 9, base)
	require.NoError(t, a.Record(ctx, 7, &e))
	require.NoError(t, a.Forget(ctx, "e1"))
	require.NoError(t, a.Forget(ctx, "unknown"))

	n, err := a.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTopUsesBoardOrdering(t *testing.T) {
	a := openMemory(t)
	ctx := t.Context()

	for _, e := range []model.Entry{
		entry("e1", "zed", 8, 8, 8, 8, base),
		entry("e2", "Amy", 8, 8, 7, 9, base),
		entry("e3", "bob", 9, 9, 9, 9, base),
		entry("e4", "Al", 8, 8, 8, 8, base),
		entry("e5", "low", 5, 5, 5, 5, base),
		entry("e6", "edge", 7, 8, 7, 8, base),
		entry("e7", "below", 7, 7, 7, 8, base),
		entry("e8", "Zoe", 10, 10, 10, 10, base),
	} {
		require.NoError(t, a.Record(ctx, 1, &e))
	}

	top, err := a.Top(ctx, 10, 30)
	require.NoError(t, err)

	var ids []string
	for _, r := range top {
		ids = append(ids, r.EntryID)
	}
	assert.Equal(t, []string{"e8", "e3", "e2", "e4", "e1", "e6"}, ids)

	top, err = a.Top(ctx, 2, 30)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestRecordMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewComponentMetrics(reg, "history")
	require.NoError(t, err)

	a := openMemory(t, WithRecorder(m))
	e := entry("e1", "Ana", 9, 8, 8, 9, base)
	require.NoError(t, a.Record(t.Context(), 1, &e))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues(metrics.OpArchive, metrics.StatusSuccess)), 0)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	a, err := Open(path, WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)))
	require.NoError(t, err)

	e := entry("e1", "Ana", 9, 8, 8, 9, base)
	require.NoError(t, a.Record(t.Context(), 1, &e))
	require.NoError(t, a.Close())

	a, err = Open(path, WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	n, err := a.Count(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
