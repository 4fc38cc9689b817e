package remote

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
)

const testBase = "https://board.example.test"

const queueJSON = `{"items": [
	{"id": "a1", "created_at": "2026-10-19T21:04:05Z", "artist_name": "Ana", "track_title": "Neon",
	 "genre": "Synthwave", "track_url": "https://x.test/neon", "notes": "", "priority": 1, "paid": 1,
	 "status": "NEW", "claimed_by": null, "claimed_at": null, "payment_status": "PAID", "paid_type": "UPNEXT"},
	{"id": "b2", "created_at": "2026-10-19 21:10:00", "artist_name": " Zed ", "track_title": "Rain",
	 "genre": "Lo-fi", "track_url": "", "notes": "first time", "priority": 0, "paid": 0,
	 "status": "IN_REVIEW", "claimed_by": "studio-a", "claimed_at": "2026-10-19T21:12:00Z",
	 "stripe_session_id": "cs_123"}
]}`

// recorded captures what a responder saw.
type recorded struct {
	mu     sync.Mutex
	bodies []map[string]any
	auth   []string
}

func (r *recorded) responder(t *testing.T, status int, reply string) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		var body map[string]any
		if req.Body != nil {
			raw, _ := io.ReadAll(req.Body)
			if len(raw) > 0 {
				assert.NoError(t, json.Unmarshal(raw, &body))
			}
		}
		r.mu.Lock()
		r.bodies = append(r.bodies, body)
		r.auth = append(r.auth, req.Header.Get("Authorization"))
		r.mu.Unlock()
		return httpmock.NewStringResponse(status, reply), nil
	}
}

func (r *recorded) last() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bodies) == 0 {
		return nil
	}
	return r.bodies[len(r.bodies)-1]
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func testSettings() conf.RemoteSettings {
	return conf.RemoteSettings{
		Enabled:   true,
		BaseURL:   testBase + "/",
		Token:     "admin-token",
		ClaimedBy: "studio-b",
		Timeout:   time.Second,
	}
}

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	s := testSettings()
	c, err := NewClient(&s, WithTransport(mt), WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, mt
}

func TestNewClientValidation(t *testing.T) {
	s := testSettings()
	s.Token = " "
	_, err := NewClient(&s)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	s = testSettings()
	s.BaseURL = ""
	_, err = NewClient(&s)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEndpointDefaults(t *testing.T) {
	got := withDefaultEndpoints(conf.RemoteEndpoints{Queue: "/custom/queue"})
	assert.Equal(t, "/custom/queue", got.Queue)
	assert.Equal(t, "/api/admin_claim", got.Claim)
	assert.Equal(t, "/api/admin_score", got.Score)
	assert.Equal(t, "/api/admin_toggle", got.Toggle)
	assert.Equal(t, "/api/now_playing", got.NowPlaying)
}

func TestFetchQueue(t *testing.T) {
	c, mt := newMockClient(t)
	rec := &recorded{}
	mt.RegisterResponder(http.MethodGet, testBase+"/api/admin_queue", rec.responder(t, http.StatusOK, queueJSON))

	subs, err := c.FetchQueue(t.Context())
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, []string{"Bearer admin-token"}, rec.auth)

	ana := subs[0]
	assert.Equal(t, "a1", ana.ID)
	assert.Equal(t, "Ana", ana.Artist)
	assert.Equal(t, "Neon", ana.Track)
	assert.Equal(t, "https://x.test/neon", ana.Link)
	assert.Equal(t, model.StatusNew, ana.Status)
	assert.Equal(t, model.PaymentPaid, ana.PaymentStatus)
	assert.Equal(t, model.PaidTypeUpNext, ana.PaidType)
	assert.Equal(t, model.BadgeUpNext, ana.Badge())
	assert.Equal(t, time.Date(2026, 10, 19, 21, 4, 5, 0, time.UTC), ana.SubmittedAt)
	assert.Empty(t, ana.ClaimedBy)
	assert.Nil(t, ana.ClaimedAt)

	zed := subs[1]
	assert.Equal(t, "Zed", zed.Artist)
	assert.Equal(t, model.StatusInReview, zed.Status)
	assert.Equal(t, model.PaymentNone, zed.PaymentStatus, "missing payment status defaults to NONE")
	assert.Equal(t, model.PaidTypeNone, zed.PaidType)
	assert.Equal(t, "studio-a", zed.ClaimedBy)
	require.NotNil(t, zed.ClaimedAt)
	assert.Equal(t, time.Date(2026, 10, 19, 21, 12, 0, 0, time.UTC), *zed.ClaimedAt)
	assert.Equal(t, time.Date(2026, 10, 19, 21, 10, 0, 0, time.UTC), zed.SubmittedAt)

	last, ok := c.LastQueue()
	require.True(t, ok)
	assert.Equal(t, subs, last)
}

func TestFetchQueueFailureKeepsLastKnown(t *testing.T) {
	c, mt := newMockClient(t)

	_, ok := c.LastQueue()
	assert.False(t, ok)

	mt.RegisterResponder(http.MethodGet, testBase+"/api/admin_queue",
		httpmock.NewStringResponder(http.StatusOK, queueJSON))
	_, err := c.FetchQueue(t.Context())
	require.NoError(t, err)

	mt.RegisterResponder(http.MethodGet, testBase+"/api/admin_queue",
		httpmock.NewStringResponder(http.StatusBadGateway, `{"error":"db unavailable"}`))
	subs, err := c.FetchQueue(t.Context())
	require.Error(t, err)
	assert.Nil(t, subs)
	assert.True(t, errors.IsRemoteSync(err))
	assert.Contains(t, err.Error(), "db unavailable")

	last, ok := c.LastQueue()
	require.True(t, ok)
	assert.Len(t, last, 2)
}

func TestFetchQueueNetworkError(t *testing.T) {
	c, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodGet, testBase+"/api/admin_queue",
		httpmock.NewErrorResponder(errors.NewStd("connection refused")))

	_, err := c.FetchQueue(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsRemoteSync(err))
	assert.Equal(t, "network", errorType(err))
}

func TestClaim(t *testing.T) {
	c, mt := newMockClient(t)
	rec := &recorded{}
	mt.RegisterResponder(http.MethodPost, testBase+"/api/admin_claim", rec.responder(t, http.StatusOK, `{"ok":true}`))

	require.NoError(t, c.Claim(t.Context(), "a1", ""))
	assert.Equal(t, map[string]any{"id": "a1", "claimed_by": "studio-b"}, rec.last())

	require.NoError(t, c.Claim(t.Context(), "a1", "guest-host"))
	assert.Equal(t, "guest-host", rec.last()["claimed_by"])

	err := c.Claim(t.Context(), "", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 2, mt.GetTotalCallCount())
}

func TestClaimConflictIsRemoteSync(t *testing.T) {
	c, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, testBase+"/api/admin_claim",
		httpmock.NewStringResponder(http.StatusConflict, `{"error":"already claimed by studio-a"}`))

	err := c.Claim(t.Context(), "b2", "")
	require.Error(t, err)
	assert.True(t, errors.IsRemoteSync(err))
	assert.Contains(t, err.Error(), "already claimed by studio-a")
	assert.Equal(t, "client", errorType(err))
}

func TestSubmitScore(t *testing.T) {
	c, mt := newMockClient(t)
	rec := &recorded{}
	mt.RegisterResponder(http.MethodPost, testBase+"/api/admin_score",
		rec.responder(t, http.StatusOK, `{"total": 41, "approved": true}`))

	replay := 8
	scores := model.Scores{Lyrics: 9, Vocals: 8, Production: 7, Originality: 9, Replay: &replay}
	res, err := c.SubmitScore(t.Context(), "a1", scores, "  great hook \n")
	require.NoError(t, err)
	require.NotNil(t, res.Total)
	assert.Equal(t, 41, *res.Total)
	assert.True(t, res.Approved)

	assert.Equal(t, map[string]any{
		"submission_id": "a1",
		"scored_by":     "studio-b",
		"lyrics":        float64(9),
		"delivery":      float64(8),
		"production":    float64(7),
		"originality":   float64(9),
		"replay":        float64(8),
		"notes":         "great hook",
	}, rec.last())
}

func TestSubmitScoreRejectsBadInput(t *testing.T) {
	c, mt := newMockClient(t)

	_, err := c.SubmitScore(t.Context(), "a1", model.Scores{Lyrics: 11}, "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = c.SubmitScore(t.Context(), "", model.Scores{}, "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	assert.Zero(t, mt.GetTotalCallCount())
}

func TestLiveToggle(t *testing.T) {
	c, mt := newMockClient(t)
	rec := &recorded{}
	mt.RegisterResponder(http.MethodGet, testBase+"/api/admin_toggle",
		httpmock.NewStringResponder(http.StatusOK, `{"submissions_open": false}`))
	mt.RegisterResponder(http.MethodPost, testBase+"/api/admin_toggle",
		rec.responder(t, http.StatusOK, `{"submissions_open": true}`))

	_, known := c.CachedLive()
	assert.False(t, known)

	open, err := c.LiveStatus(t.Context())
	require.NoError(t, err)
	assert.False(t, open)

	open, err = c.ToggleLive(t.Context())
	require.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, map[string]any{"open": true}, rec.last())

	cached, known := c.CachedLive()
	assert.True(t, known)
	assert.True(t, cached)
}

func TestPublishFinalRecap(t *testing.T) {
	t.Run("posts the final recap", func(t *testing.T) {
		c, mt := newMockClient(t)
		rec := &recorded{}
		mt.RegisterResponder(http.MethodPost, testBase+"/api/now_playing", rec.responder(t, http.StatusOK, `{}`))

		total := 33
		sub := model.Submission{ID: "a1", Artist: "Ana", Track: "Neon", Genre: "Synthwave", Link: "https://x.test/neon"}
		c.PublishFinalRecap(&sub, model.Scores{Lyrics: 9, Vocals: 8, Production: 8, Originality: 8},
			ScoreResult{Total: &total, Approved: true})
		c.Close()

		body := rec.last()
		require.NotNil(t, body)
		assert.Equal(t, true, body["final"])
		assert.Equal(t, "a1", body["submission_id"])
		assert.Equal(t, "Ana", body["artist_name"])
		assert.Equal(t, "Neon", body["track_title"])
		assert.Equal(t, float64(8), body["delivery"])
		assert.Equal(t, float64(0), body["replay"])
		assert.Equal(t, float64(33), body["total"])
		assert.Equal(t, true, body["approved"])
	})

	t.Run("failures are dropped", func(t *testing.T) {
		c, mt := newMockClient(t)
		mt.RegisterResponder(http.MethodPost, testBase+"/api/now_playing",
			httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

		sub := model.Submission{ID: "a1", Artist: "Ana", Track: "Neon"}
		c.PublishFinalRecap(&sub, model.Scores{}, ScoreResult{})
		c.Close()

		assert.Equal(t, 1, mt.GetTotalCallCount())
	})
}

func TestParseRemoteTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-10-19T21:04:05.250Z", time.Date(2026, 10, 19, 21, 4, 5, 0, time.UTC)},
		{"2026-10-19T23:04:05+02:00", time.Date(2026, 10, 19, 21, 4, 5, 0, time.UTC)},
		{"2026-10-19 21:04:05", time.Date(2026, 10, 19, 21, 4, 5, 0, time.UTC)},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseRemoteTime(tt.in)), "got %v", parseRemoteTime(tt.in))
		})
	}
}

func TestRemoteStatus(t *testing.T) {
	assert.Equal(t, model.StatusDone, remoteStatus("done"))
	assert.Equal(t, model.StatusInReview, remoteStatus("in review"))
	assert.Equal(t, model.StatusNew, remoteStatus(""))
	assert.Equal(t, model.Status("ARCHIVED"), remoteStatus("ARCHIVED"))
}
