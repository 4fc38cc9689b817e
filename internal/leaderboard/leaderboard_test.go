package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/model"
)

var reviewed = time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)

func entry(id, artist string, l, v, p, o int) model.Entry {
	return model.Entry{
		ID:         id,
		Artist:     artist,
		Track:      artist + " track",
		Scores:     model.Scores{Lyrics: l, Vocals: v, Production: p, Originality: o},
		ReviewedAt: reviewed,
	}
}

func ids(entries []model.Entry) []string {
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = entries[i].ID
	}
	return out
}

func TestSortTieBreaks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []model.Entry
		want    []string
	}{
		{
			name: "equal total and originality falls back to artist ignoring case",
			entries: []model.Entry{
				entry("mike", "Mike Stadium", 9, 8, 8, 9),
				entry("ana", "ana", 8, 9, 8, 9),
			},
			want: []string{"ana", "mike"},
		},
		{
			name: "higher originality wins on equal total",
			entries: []model.Entry{
				entry("zed", "Zed", 9, 9, 8, 8),
				entry("ana", "Ana", 9, 9, 9, 7),
			},
			want: []string{"zed", "ana"},
		},
		{
			name: "total dominates",
			entries: []model.Entry{
				entry("low", "Aaron", 7, 7, 7, 10),
				entry("high", "Zoe", 10, 10, 10, 1),
			},
			want: []string{"high", "low"},
		},
		{
			name: "identical keys keep insertion order",
			entries: []model.Entry{
				entry("first", "Dup", 8, 8, 8, 8),
				entry("second", "dup", 8, 8, 8, 8),
			},
			want: []string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			Sort(tt.entries)
			assert.Equal(t, tt.want, ids(tt.entries))
		})
	}
}

func TestSortIsIdempotent(t *testing.T) {
	t.Parallel()

	entries := []model.Entry{
		entry("a", "Bee", 5, 5, 5, 5),
		entry("b", "ant", 9, 9, 9, 9),
		entry("c", "Cat", 9, 9, 9, 9),
		entry("d", "Dog", 8, 8, 9, 7),
		entry("e", "Ant", 9, 9, 9, 9),
	}
	Sort(entries)
	once := ids(entries)
	Sort(entries)
	assert.Equal(t, once, ids(entries))
	assert.Equal(t, []string{"b", "e", "c", "d", "a"}, once)
}

func TestQualifying(t *testing.T) {
	t.Parallel()

	entries := []model.Entry{
		entry("29", "A", 8, 7, 7, 7),
		entry("30", "B", 8, 8, 7, 7),
		entry("40", "C", 10, 10, 10, 10),
		entry("0", "D", 0, 0, 0, 0),
	}
	got := Qualifying(entries, 30)
	assert.ElementsMatch(t, []string{"30", "40"}, ids(got))
	for i := range got {
		assert.GreaterOrEqual(t, got[i].Total(), 30)
	}
	assert.Len(t, entries, 4, "input must not shrink")
}

func TestTopN(t *testing.T) {
	t.Parallel()

	entries := []model.Entry{
		entry("a", "A", 8, 8, 8, 8),
		entry("b", "B", 9, 9, 9, 9),
		entry("c", "C", 5, 5, 5, 5),
		entry("d", "D", 10, 10, 10, 10),
	}

	assert.Equal(t, []string{"d", "b"}, ids(TopN(entries, 2, 30)))
	assert.Equal(t, []string{"d", "b", "a"}, ids(TopN(entries, 50, 30)), "short list is not an error")
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(entries), "input order untouched")
	assert.Empty(t, TopN(nil, 5, 30))
}

func TestRankAndSlots(t *testing.T) {
	t.Parallel()

	rows := Rank(TopN([]model.Entry{
		entry("a", "A", 8, 8, 8, 8),
		entry("b", "B", 9, 9, 9, 9),
	}, 5, 30))
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "b", rows[0].Entry.ID)
	assert.Equal(t, 2, rows[1].Rank)

	slots := Slots(rows, 5)
	require.Len(t, slots, 5)
	assert.False(t, slots[1].Empty())
	for i := 2; i < 5; i++ {
		assert.True(t, slots[i].Empty())
		assert.Equal(t, i+1, slots[i].Rank)
	}

	assert.Len(t, Slots(rows, 1), 1)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	entries := []model.Entry{
		entry("a", "A", 8, 8, 8, 8),
		entry("b", "B", 9, 9, 9, 9),
		entry("c", "C", 7, 7, 7, 7),
	}

	got, err := Remove(entries, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(got))

	_, err = Remove(got, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRemoveMatch(t *testing.T) {
	t.Parallel()

	t.Run("single match", func(t *testing.T) {
		t.Parallel()
		entries := []model.Entry{entry("a", "A", 8, 8, 8, 8), entry("b", "B", 9, 9, 9, 9)}
		probe := entry("", "B", 9, 9, 9, 9)
		got, err := RemoveMatch(entries, &probe)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(got))
	})

	t.Run("duplicates are ambiguous", func(t *testing.T) {
		t.Parallel()
		entries := []model.Entry{entry("a", "Dup", 8, 8, 8, 8), entry("b", "Dup", 8, 8, 8, 8)}
		probe := entry("", "Dup", 8, 8, 8, 8)
		got, err := RemoveMatch(entries, &probe)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConflict))
		assert.Len(t, got, 2)
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		probe := entry("", "Nobody", 1, 1, 1, 1)
		_, err := RemoveMatch([]model.Entry{entry("a", "A", 8, 8, 8, 8)}, &probe)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestMetaLine(t *testing.T) {
	t.Parallel()

	e := entry("a", "A", 9, 8, 8, 9)
	e.Genre = "Indie"
	assert.Equal(t, "Indie • L9 V8 P8 O9", MetaLine(&e))

	e.Genre = ""
	assert.Equal(t, "— • L9 V8 P8 O9", MetaLine(&e))
}

func TestFormatText(t *testing.T) {
	t.Parallel()

	a := entry("a", "Ana", 9, 9, 8, 8)
	a.Track = "Sky"
	a.Genre = "Pop"
	b := entry("b", "Mike Stadium", 8, 8, 8, 8)
	b.Track = "Roar"

	text := FormatText(Rank([]model.Entry{a, b}), TextOptions{
		Title:        "AI Music Review Board",
		Limit:        50,
		MinTotal:     30,
		MaxTotal:     40,
		SessionLabel: SessionLabel(7, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)),
	})

	want := "AI MUSIC REVIEW BOARD — TOP 50 (≥ 30)\n" +
		"Board Session 007 • Oct 19, 2026\n" +
		"\n" +
		"1. Ana — Sky [Pop] (34/40)\n" +
		"2. Mike Stadium — Roar (32/40)"
	assert.Equal(t, want, text)
	assert.Empty(t, FormatText(nil, TextOptions{}))
}
