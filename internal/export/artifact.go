package export

import (
	"encoding/json"
	"time"

	"github.com/aimusicboards/reviewboard/internal/leaderboard"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/session"
)

// Rubric labels published with every artifact.
var defaultScoring = Scoring{
	L: "Lyrics",
	V: "Vocal/Delivery",
	P: "Production",
	O: "Originality",
}

// Artifact is the document overlays read.
type Artifact struct {
	UpdatedAt      time.Time   `json:"updated_at"`
	BoardSession   string      `json:"board_session"`
	Scoring        Scoring     `json:"scoring"`
	SubmissionNote string      `json:"submission_note"`
	NowPlaying     *NowPlaying `json:"now_playing"`
	Leaderboard    []Row       `json:"leaderboard"`
}

// Scoring maps the single-letter column keys to their rubric names.
type Scoring struct {
	L string `json:"L"`
	V string `json:"V"`
	P string `json:"P"`
	O string `json:"O"`
}

// NowPlaying is the banner block of the artifact.
type NowPlaying struct {
	Artist string       `json:"artist"`
	Track  string       `json:"track"`
	Genre  string       `json:"genre"`
	Status model.Status `json:"status"`
	Link   string       `json:"link"`
}

// Row is one ranked leaderboard line.
type Row struct {
	Rank        int    `json:"rank"`
	Artist      string `json:"artist"`
	Track       string `json:"track"`
	Genre       string `json:"genre"`
	Total       int    `json:"total"`
	Lyrics      int    `json:"lyrics"`
	Vocals      int    `json:"vocals"`
	Production  int    `json:"production"`
	Originality int    `json:"originality"`
	// ReviewedAt is RFC 3339 in UTC, or "" for legacy entries without a time.
	ReviewedAt string `json:"reviewed_at"`
}

func reviewedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return model.Timestamp(t).Format(time.RFC3339)
}

// BuildOptions controls what goes into an artifact.
type BuildOptions struct {
	Limit          int
	MinTotal       int
	SubmissionNote string
	// Location is used for the calendar date in the session label.
	Location *time.Location
}

// Build assembles the artifact from state as it is now.
func Build(state *session.State, opts BuildOptions, now time.Time) Artifact {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	ranked := leaderboard.Rank(leaderboard.TopN(state.Entries, opts.Limit, opts.MinTotal))
	rows := make([]Row, len(ranked))
	for i := range ranked {
		e := &ranked[i].Entry
		rows[i] = Row{
			Rank:        ranked[i].Rank,
			Artist:      e.Artist,
			Track:       e.Track,
			Genre:       e.Genre,
			Total:       e.Total(),
			Lyrics:      e.Lyrics,
			Vocals:      e.Vocals,
			Production:  e.Production,
			Originality: e.Originality,
			ReviewedAt:  reviewedAt(e.ReviewedAt),
		}
	}

	a := Artifact{
		UpdatedAt:      model.Timestamp(now),
		BoardSession:   leaderboard.SessionLabel(state.BoardSessionNum, now.In(loc)),
		Scoring:        defaultScoring,
		SubmissionNote: opts.SubmissionNote,
		Leaderboard:    rows,
	}
	if np := state.NowPlaying; np != nil {
		a.NowPlaying = &NowPlaying{
			Artist: np.Artist,
			Track:  np.Track,
			Genre:  np.Genre,
			Status: np.Status,
			Link:   np.Link,
		}
	}
	return a
}

// Encode renders the artifact as indented JSON.
func (a *Artifact) Encode() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}
