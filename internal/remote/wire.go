package remote

import (
	"strings"
	"time"

	"github.com/aimusicboards/reviewboard/internal/model"
)

// remoteTimeLayouts are the timestamp shapes the service has been seen to
// emit: RFC 3339 from the API layer and bare SQL datetimes from older rows.
var remoteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// wireSubmission is a queue item as served by the admin queue endpoint.
// Fields the service adds later are ignored; fields it omits take the
// zero value and are defaulted in toModel.
type wireSubmission struct {
	ID            string  `json:"id"`
	CreatedAt     string  `json:"created_at"`
	ArtistName    string  `json:"artist_name"`
	TrackTitle    string  `json:"track_title"`
	Genre         string  `json:"genre"`
	TrackURL      string  `json:"track_url"`
	Notes         string  `json:"notes"`
	Priority      int     `json:"priority"`
	Paid          int     `json:"paid"`
	Status        string  `json:"status"`
	ClaimedBy     *string `json:"claimed_by"`
	ClaimedAt     *string `json:"claimed_at"`
	PaymentStatus string  `json:"payment_status"`
	PaidType      *string `json:"paid_type"`
}

type queueResponse struct {
	Items []wireSubmission `json:"items"`
}

type claimRequest struct {
	ID        string `json:"id"`
	ClaimedBy string `json:"claimed_by"`
}

// scoreRequest uses the remote rubric, where the vocals category is called
// delivery and replay is always sent.
type scoreRequest struct {
	SubmissionID string `json:"submission_id"`
	ScoredBy     string `json:"scored_by"`
	Lyrics       int    `json:"lyrics"`
	Delivery     int    `json:"delivery"`
	Production   int    `json:"production"`
	Originality  int    `json:"originality"`
	Replay       int    `json:"replay"`
	Notes        string `json:"notes"`
}

// ScoreResult is the service's verdict on a submitted score.
type ScoreResult struct {
	Total    *int `json:"total"`
	Approved bool `json:"approved"`
}

type toggleRequest struct {
	Open bool `json:"open"`
}

type toggleResponse struct {
	SubmissionsOpen bool `json:"submissions_open"`
}

type recapRequest struct {
	Final        bool   `json:"final"`
	SubmissionID string `json:"submission_id"`
	ArtistName   string `json:"artist_name"`
	TrackTitle   string `json:"track_title"`
	Genre        string `json:"genre"`
	TrackURL     string `json:"track_url"`
	Lyrics       int    `json:"lyrics"`
	Delivery     int    `json:"delivery"`
	Production   int    `json:"production"`
	Originality  int    `json:"originality"`
	Replay       int    `json:"replay"`
	Total        *int   `json:"total"`
	Approved     bool   `json:"approved"`
}

func newScoreRequest(id, scoredBy string, s model.Scores, notes string) scoreRequest {
	return scoreRequest{
		SubmissionID: id,
		ScoredBy:     scoredBy,
		Lyrics:       s.Lyrics,
		Delivery:     s.Vocals,
		Production:   s.Production,
		Originality:  s.Originality,
		Replay:       replayValue(s),
		Notes:        strings.TrimSpace(notes),
	}
}

func newRecapRequest(sub *model.Submission, s model.Scores, res ScoreResult) recapRequest {
	return recapRequest{
		Final:        true,
		SubmissionID: sub.ID,
		ArtistName:   sub.Artist,
		TrackTitle:   sub.Track,
		Genre:        sub.Genre,
		TrackURL:     sub.Link,
		Lyrics:       s.Lyrics,
		Delivery:     s.Vocals,
		Production:   s.Production,
		Originality:  s.Originality,
		Replay:       replayValue(s),
		Total:        res.Total,
		Approved:     res.Approved,
	}
}

func replayValue(s model.Scores) int {
	if s.Replay == nil {
		return 0
	}
	return *s.Replay
}

func (w *wireSubmission) toModel() model.Submission {
	sub := model.Submission{
		ID:            w.ID,
		Artist:        strings.TrimSpace(w.ArtistName),
		Track:         strings.TrimSpace(w.TrackTitle),
		Genre:         strings.TrimSpace(w.Genre),
		Link:          strings.TrimSpace(w.TrackURL),
		Notes:         w.Notes,
		SubmittedAt:   parseRemoteTime(w.CreatedAt),
		Status:        remoteStatus(w.Status),
		PaymentStatus: model.PaymentNone,
		PaidType:      model.PaidTypeNone,
		Priority:      w.Priority,
		Paid:          w.Paid,
	}
	if ps := strings.ToUpper(strings.TrimSpace(w.PaymentStatus)); ps != "" {
		sub.PaymentStatus = model.PaymentStatus(ps)
	}
	if w.PaidType != nil {
		sub.PaidType = model.PaidType(strings.ToUpper(strings.TrimSpace(*w.PaidType)))
	}
	if w.ClaimedBy != nil {
		sub.ClaimedBy = *w.ClaimedBy
	}
	if w.ClaimedAt != nil {
		if t := parseRemoteTime(*w.ClaimedAt); !t.IsZero() {
			sub.ClaimedAt = &t
		}
	}
	return sub
}

// remoteStatus keeps statuses the board does not know verbatim so they
// still display.
func remoteStatus(raw string) model.Status {
	if status, ok := model.ParseStatus(raw); ok {
		return status
	}
	if raw = strings.TrimSpace(raw); raw != "" {
		return model.Status(raw)
	}
	return model.StatusNew
}

func parseRemoteTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range remoteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Timestamp(t)
		}
	}
	return time.Time{}
}
