package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/aimusicboards/reviewboard/internal/model"
)

// MetaLine renders the compact score line used on display cards,
// e.g. "Indie • L9 V8 P8 O9".
func MetaLine(e *model.Entry) string {
	genre := e.Genre
	if genre == "" {
		genre = "—"
	}
	return fmt.Sprintf("%s • L%d V%d P%d O%d", genre, e.Lyrics, e.Vocals, e.Production, e.Originality)
}

// TextOptions controls FormatText output.
type TextOptions struct {
	Title        string // show name, upper-cased in the header
	Limit        int
	MinTotal     int
	MaxTotal     int
	SessionLabel string
}

// FormatText renders ranked rows as the plain-text list hosts paste into
// chat or show notes. It returns "" when there are no rows.
func FormatText(rows []Row, opts TextOptions) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s — TOP %d (≥ %d)\n", strings.ToUpper(opts.Title), opts.Limit, opts.MinTotal)
	b.WriteString(opts.SessionLabel)
	b.WriteString("\n\n")

	for i := range rows {
		e := &rows[i].Entry
		genre := ""
		if e.Genre != "" {
			genre = " [" + e.Genre + "]"
		}
		fmt.Fprintf(&b, "%d. %s — %s%s (%d/%d)", rows[i].Rank, e.Artist, e.Track, genre, e.Total(), opts.MaxTotal)
		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// SessionLabel renders the episode heading, e.g. "Board Session 007 • Oct 19, 2026".
func SessionLabel(num int, date time.Time) string {
	return fmt.Sprintf("Board Session %03d • %s", num, date.Format("Jan 02, 2006"))
}
