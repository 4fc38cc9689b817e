// Package remote talks to the hosted review service: it polls the admin
// queue, claims and scores submissions, and flips the live switch that
// opens or closes public intake.
//
// Every network failure is reported as a remote-sync error. Callers are
// expected to keep showing the last known state rather than stop.
package remote

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/httpclient"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
	"github.com/aimusicboards/reviewboard/internal/privacy"
)

const (
	// DefaultPollInterval is how often the control room refreshes the queue.
	DefaultPollInterval = 2500 * time.Millisecond
	// DefaultTimeout bounds every request to the service.
	DefaultTimeout = 10 * time.Second

	liveCacheTTL  = 5 * time.Minute
	queueCacheKey = "queue"
	liveCacheKey  = "live"
)

// Default endpoint paths of the production service.
var defaultEndpoints = conf.RemoteEndpoints{
	Queue:      "/api/admin_queue",
	Claim:      "/api/admin_claim",
	Score:      "/api/admin_score",
	Toggle:     "/api/admin_toggle",
	NowPlaying: "/api/now_playing",
}

// Client is the admin API client. Safe for concurrent use.
type Client struct {
	http      *httpclient.Client
	token     string
	baseURL   string
	endpoints conf.RemoteEndpoints
	claimedBy string
	timeout   time.Duration
	cache     *cache.Cache
	log       logger.Logger
	recorder  metrics.Recorder

	background sync.WaitGroup
}

type clientOptions struct {
	log       logger.Logger
	recorder  metrics.Recorder
	transport http.RoundTripper
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *clientOptions) { o.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *clientOptions) { o.recorder = r }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// NewClient validates s and returns a client for the service it names.
func NewClient(s *conf.RemoteSettings, opts ...Option) (*Client, error) {
	if strings.TrimSpace(s.Token) == "" {
		return nil, errors.Newf("remote admin token is required").
			Component("remote").
			Category(errors.CategoryConfiguration).
			Build()
	}
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		return nil, errors.Newf("remote base URL is required").
			Component("remote").
			Category(errors.CategoryConfiguration).
			Build()
	}

	o := clientOptions{
		log:      logger.Global().Module("remote"),
		recorder: metrics.NoOpRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cfg := httpclient.DefaultConfig()
	cfg.DefaultTimeout = timeout
	cfg.RateLimit = s.RateLimit
	cfg.Transport = o.transport
	cfg.Headers = http.Header{"Authorization": {"Bearer " + s.Token}}
	cfg.Observe = func(ex httpclient.Exchange) {
		o.log.Debug("remote request",
			logger.String("method", ex.Method),
			logger.String("url", ex.URL),
			logger.Int("status", ex.Status),
			logger.Duration("elapsed", ex.Elapsed))
	}

	c := &Client{
		http:      httpclient.New(&cfg),
		token:     s.Token,
		baseURL:   base,
		endpoints: withDefaultEndpoints(s.Endpoints),
		claimedBy: strings.TrimSpace(s.ClaimedBy),
		timeout:   timeout,
		cache:     cache.New(liveCacheTTL, 2*liveCacheTTL),
		log:       o.log,
		recorder:  o.recorder,
	}

	c.log.Info("remote client initialized",
		logger.String("base_url", base),
		logger.String("claimed_by", c.claimedBy),
		logger.Duration("timeout", timeout),
		logger.Float64("rate_limit", s.RateLimit))

	return c, nil
}

func withDefaultEndpoints(e conf.RemoteEndpoints) conf.RemoteEndpoints {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return conf.RemoteEndpoints{
		Queue:      pick(e.Queue, defaultEndpoints.Queue),
		Claim:      pick(e.Claim, defaultEndpoints.Claim),
		Score:      pick(e.Score, defaultEndpoints.Score),
		Toggle:     pick(e.Toggle, defaultEndpoints.Toggle),
		NowPlaying: pick(e.NowPlaying, defaultEndpoints.NowPlaying),
	}
}

// ClaimedBy is the operator name sent with claims and scores.
func (c *Client) ClaimedBy() string {
	return c.claimedBy
}

// FetchQueue returns the full remote queue. A successful fetch replaces
// the last known queue.
func (c *Client) FetchQueue(ctx context.Context) ([]model.Submission, error) {
	var resp queueResponse
	if err := c.call(ctx, metrics.OpPoll, http.MethodGet, c.endpoints.Queue, nil, &resp); err != nil {
		return nil, err
	}

	subs := make([]model.Submission, 0, len(resp.Items))
	for i := range resp.Items {
		subs = append(subs, resp.Items[i].toModel())
	}
	c.cache.Set(queueCacheKey, subs, cache.NoExpiration)
	return slices.Clone(subs), nil
}

// LastQueue returns the queue from the most recent successful fetch.
func (c *Client) LastQueue() ([]model.Submission, bool) {
	cached, found := c.cache.Get(queueCacheKey)
	if !found {
		return nil, false
	}
	subs, ok := cached.([]model.Submission)
	if !ok {
		return nil, false
	}
	return slices.Clone(subs), true
}

// Claim asks the service to mark id as being reviewed by claimedBy, or by
// the configured operator when claimedBy is empty. The service decides who
// wins; a nil error only means the request was accepted.
func (c *Client) Claim(ctx context.Context, id, claimedBy string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Newf("submission id is required").
			Component("remote").
			Category(errors.CategoryValidation).
			Build()
	}
	if claimedBy = strings.TrimSpace(claimedBy); claimedBy == "" {
		claimedBy = c.claimedBy
	}
	req := claimRequest{ID: id, ClaimedBy: claimedBy}
	return c.call(ctx, metrics.OpClaim, http.MethodPost, c.endpoints.Claim, req, nil)
}

// SubmitScore records the final score for id and returns the service's
// total and board verdict.
func (c *Client) SubmitScore(ctx context.Context, id string, scores model.Scores, notes string) (ScoreResult, error) {
	if strings.TrimSpace(id) == "" {
		return ScoreResult{}, errors.Newf("submission id is required").
			Component("remote").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := model.ValidateScores(scores); err != nil {
		return ScoreResult{}, err
	}

	var res ScoreResult
	req := newScoreRequest(id, c.claimedBy, scores, notes)
	if err := c.call(ctx, metrics.OpScore, http.MethodPost, c.endpoints.Score, req, &res); err != nil {
		return ScoreResult{}, err
	}

	c.log.Info("score submitted",
		logger.String("submission_id", id),
		logger.Any("total", res.Total),
		logger.Bool("approved", res.Approved))
	return res, nil
}

// LiveStatus reports whether the service is accepting submissions.
func (c *Client) LiveStatus(ctx context.Context) (bool, error) {
	var resp toggleResponse
	if err := c.call(ctx, metrics.OpToggle, http.MethodGet, c.endpoints.Toggle, nil, &resp); err != nil {
		return false, err
	}
	c.cache.Set(liveCacheKey, resp.SubmissionsOpen, cache.DefaultExpiration)
	return resp.SubmissionsOpen, nil
}

// SetLive opens or closes intake and returns the state the service reports.
func (c *Client) SetLive(ctx context.Context, open bool) (bool, error) {
	var resp toggleResponse
	if err := c.call(ctx, metrics.OpToggle, http.MethodPost, c.endpoints.Toggle, toggleRequest{Open: open}, &resp); err != nil {
		return false, err
	}
	c.cache.Set(liveCacheKey, resp.SubmissionsOpen, cache.DefaultExpiration)
	c.log.Info("live status changed", logger.Bool("submissions_open", resp.SubmissionsOpen))
	return resp.SubmissionsOpen, nil
}

// ToggleLive reads the current live status and flips it.
func (c *Client) ToggleLive(ctx context.Context) (bool, error) {
	open, err := c.LiveStatus(ctx)
	if err != nil {
		return false, err
	}
	return c.SetLive(ctx, !open)
}

// CachedLive returns the live status seen within the last few minutes.
func (c *Client) CachedLive() (open, known bool) {
	cached, found := c.cache.Get(liveCacheKey)
	if !found {
		return false, false
	}
	open, ok := cached.(bool)
	return open, ok
}

// PublishFinalRecap posts the final score recap for the stream overlay.
// It returns immediately; failures are logged at debug level and dropped.
func (c *Client) PublishFinalRecap(sub *model.Submission, scores model.Scores, res ScoreResult) {
	req := newRecapRequest(sub, scores, res)
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.call(ctx, metrics.OpRecap, http.MethodPost, c.endpoints.NowPlaying, req, nil); err != nil {
			c.log.Debug("final recap not published",
				logger.String("submission_id", req.SubmissionID),
				logger.Error(err))
		}
	}()
}

// Close waits for background recaps and releases idle connections.
func (c *Client) Close() {
	c.background.Wait()
	c.http.Close()
}

func (c *Client) call(ctx context.Context, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.http.DoJSON(ctx, method, c.baseURL+path, in, out)
	c.recorder.RecordDuration(op, time.Since(start).Seconds())

	if err != nil {
		c.recorder.RecordOperation(op, metrics.StatusError)
		c.recorder.RecordError(op, errorType(err))
		return errors.New(privacy.WrapError(err, c.token)).
			Component("remote").
			Category(errors.CategoryRemoteSync).
			Context("operation", op).
			Context("path", path).
			Context("status_code", httpclient.StatusCode(err)).
			Build()
	}
	c.recorder.RecordOperation(op, metrics.StatusSuccess)
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case httpclient.StatusCode(err) >= http.StatusInternalServerError:
		return "server"
	case httpclient.StatusCode(err) != 0:
		return "client"
	default:
		return "network"
	}
}
