// Package leaderboard ranks scored entries: it filters by the qualifying
// total, orders by total, originality and artist, and slices the top rows
// for the live display and the exported board.
package leaderboard

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/model"
)

// Row is an entry with its 1-based board position.
type Row struct {
	Rank  int
	Entry model.Entry
}

// Empty reports whether the row is a display placeholder added by Slots.
func (r *Row) Empty() bool {
	return r.Entry.ID == ""
}

// foldArtist returns a Unicode case-folded artist name for tie-breaking.
// A Caser holds state, so one is made per call.
func foldArtist(s string) string {
	return cases.Fold().String(s)
}

// Compare orders two entries for the board: higher total first, then
// higher originality, then artist name ascending ignoring case.
func Compare(a, b *model.Entry) int {
	if c := cmp.Compare(b.Total(), a.Total()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Originality, a.Originality); c != 0 {
		return c
	}
	return cmp.Compare(foldArtist(a.Artist), foldArtist(b.Artist))
}

// Sort orders entries in place. The sort is stable, so entries equal on all
// three keys keep their insertion order, and sorting twice changes nothing.
func Sort(entries []model.Entry) {
	slices.SortStableFunc(entries, func(a, b model.Entry) int {
		return Compare(&a, &b)
	})
}

// Qualifying returns the entries whose total is at least minTotal, in input order.
func Qualifying(entries []model.Entry, minTotal int) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for i := range entries {
		if entries[i].Total() >= minTotal {
			out = append(out, entries[i])
		}
	}
	return out
}

// TopN returns at most n qualifying entries in board order. Fewer than n
// qualifying entries is not an error. entries is not modified.
func TopN(entries []model.Entry, n, minTotal int) []model.Entry {
	q := Qualifying(entries, minTotal)
	Sort(q)
	if n >= 0 && len(q) > n {
		q = q[:n]
	}
	return q
}

// Rank numbers entries 1..k in the order given.
func Rank(entries []model.Entry) []Row {
	rows := make([]Row, len(entries))
	for i := range entries {
		rows[i] = Row{Rank: i + 1, Entry: entries[i]}
	}
	return rows
}

// Slots pads or trims rows to exactly size positions for fixed-layout
// displays. Padding rows carry their rank and an empty entry.
func Slots(rows []Row, size int) []Row {
	out := make([]Row, size)
	for i := range out {
		if i < len(rows) {
			out[i] = rows[i]
		} else {
			out[i] = Row{Rank: i + 1}
		}
	}
	return out
}

// Remove deletes the entry with the given ID, preserving the order of the rest.
func Remove(entries []model.Entry, id string) ([]model.Entry, error) {
	i := slices.IndexFunc(entries, func(e model.Entry) bool { return e.ID == id })
	if i < 0 {
		return entries, errors.Newf("entry %q not found", id).
			Component("leaderboard").
			Category(errors.CategoryNotFound).
			Context("entry_id", id).
			Build()
	}
	return slices.Delete(entries, i, i+1), nil
}

// RemoveMatch deletes the single entry equal by value to match. When several
// entries match it removes nothing and reports the ambiguity, since a
// value match cannot tell them apart.
func RemoveMatch(entries []model.Entry, match *model.Entry) ([]model.Entry, error) {
	found := -1
	count := 0
	for i := range entries {
		if entries[i].SameRecord(match) {
			if found < 0 {
				found = i
			}
			count++
		}
	}

	switch count {
	case 0:
		return entries, errors.Newf("no entry matches %s - %s", match.Artist, match.Track).
			Component("leaderboard").
			Category(errors.CategoryNotFound).
			Build()
	case 1:
		return slices.Delete(entries, found, found+1), nil
	default:
		return entries, errors.Newf("%d entries match %s - %s; remove by id instead", count, match.Artist, match.Track).
			Component("leaderboard").
			Category(errors.CategoryConflict).
			Context("matches", count).
			Build()
	}
}
