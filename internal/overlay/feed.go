// Package overlay serves the published leaderboard to stream overlays over
// HTTP. The Feed is an export target, so it always holds the artifact from
// the most recent flush.
package overlay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/export"
	"github.com/aimusicboards/reviewboard/internal/leaderboard"
	"github.com/aimusicboards/reviewboard/internal/model"
)

// DefaultDisplaySlots is the number of cards on the display view.
const DefaultDisplaySlots = 5

// Feed holds the latest artifact in memory.
type Feed struct {
	now func() time.Time

	mu          sync.RWMutex
	raw         []byte
	etag        string
	artifact    export.Artifact
	publishedAt time.Time
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

// Name implements export.Target.
func (f *Feed) Name() string { return "overlay" }

// Publish implements export.Target. Documents that are not a valid artifact
// are rejected and the previous one is kept.
func (f *Feed) Publish(ctx context.Context, artifact []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var decoded export.Artifact
	if err := json.Unmarshal(artifact, &decoded); err != nil {
		return errors.New(err).
			Component("overlay").
			Category(errors.CategoryExportIO).
			Context("bytes", len(artifact)).
			Build()
	}

	sum := sha256.Sum256(artifact)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = slices.Clone(artifact)
	f.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
	f.artifact = decoded
	f.publishedAt = f.now()
	return nil
}

// Close implements export.Target.
func (f *Feed) Close() error { return nil }

// Latest returns the raw artifact and its ETag, or ok=false before the
// first publish.
func (f *Feed) Latest() (raw []byte, etag string, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.raw == nil {
		return nil, "", false
	}
	return f.raw, f.etag, true
}

// PublishedAt is when the current artifact arrived.
func (f *Feed) PublishedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.publishedAt
}

// Banner is the now-playing block of the display view.
type Banner struct {
	Main string `json:"main"`
	Sub  string `json:"sub"`
}

// Card is one slot of the display view; an empty card has only Place.
type Card struct {
	Place int    `json:"place"`
	Title string `json:"title,omitempty"`
	Total int    `json:"total,omitempty"`
	Meta  string `json:"meta,omitempty"`
}

// Display is the compact view an on-stream scene renders.
type Display struct {
	Session    string `json:"session"`
	NowPlaying Banner `json:"now_playing"`
	Cards      []Card `json:"cards"`
}

// Display builds the display view with the given number of cards, padding
// with empty ones when fewer rows qualify.
func (f *Feed) Display(slots int) (Display, bool) {
	if slots <= 0 {
		slots = DefaultDisplaySlots
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.raw == nil {
		return Display{}, false
	}

	a := &f.artifact
	d := Display{
		Session:    a.BoardSession,
		NowPlaying: banner(a.NowPlaying),
		Cards:      make([]Card, slots),
	}
	for i := range d.Cards {
		d.Cards[i].Place = i + 1
		if i >= len(a.Leaderboard) {
			continue
		}
		row := &a.Leaderboard[i]
		entry := model.Entry{
			Genre: row.Genre,
			Scores: model.Scores{
				Lyrics:      row.Lyrics,
				Vocals:      row.Vocals,
				Production:  row.Production,
				Originality: row.Originality,
			},
		}
		d.Cards[i].Title = row.Artist + " — " + row.Track
		d.Cards[i].Total = row.Total
		d.Cards[i].Meta = leaderboard.MetaLine(&entry)
	}
	return d, true
}

func banner(np *export.NowPlaying) Banner {
	if np == nil {
		return Banner{Main: "Nothing selected"}
	}
	var extra []string
	for _, s := range []string{np.Genre, string(np.Status), np.Link} {
		if s != "" {
			extra = append(extra, s)
		}
	}
	return Banner{
		Main: np.Artist + " — " + np.Track,
		Sub:  strings.Join(extra, " • "),
	}
}
