// Package httpclient is the HTTP client used to talk to the remote review
// service. It adds per-request timeouts, default headers such as bearer
// auth, client-side rate limiting and a per-request observer for logging.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout applies to requests whose context has no deadline.
	DefaultTimeout = 10 * time.Second

	defaultUserAgent = "reviewboard"
)

// Exchange describes one finished request, as passed to Config.Observe.
type Exchange struct {
	Method  string
	URL     string
	Status  int // zero when no response arrived
	Elapsed time.Duration
	Err     error
}

// Config configures a Client. Zero fields take defaults.
type Config struct {
	// DefaultTimeout bounds requests made without a context deadline,
	// including reading the body.
	DefaultTimeout time.Duration

	UserAgent string

	// Headers are added to every request that does not already set them.
	Headers http.Header

	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64

	// Transport replaces the pooled default transport, e.g. for tests.
	Transport http.RoundTripper

	// Observe, when set, is called after every request.
	Observe func(Exchange)
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: DefaultTimeout,
		UserAgent:      defaultUserAgent,
	}
}

// Client wraps http.Client. Safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
	headers        http.Header
	limiter        *rate.Limiter
	observe        func(Exchange)
}

// New creates a client from cfg; nil means DefaultConfig. cfg is not
// retained or modified.
func New(cfg *Config) *Client {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}

	rt := c.Transport
	if rt == nil {
		rt = newTransport()
	}

	client := &Client{
		client:         &http.Client{Transport: rt},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
		headers:        c.Headers.Clone(),
		observe:        c.Observe,
	}
	if c.RateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(c.RateLimit), max(1, int(c.RateLimit)))
	}
	return client
}

// newTransport is a small pool sized for one remote service.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Do sends req under ctx. Without a deadline on ctx the default timeout
// applies, and it keeps running until the response body is closed. The
// caller must close the body when err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
	}
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header[key] = values
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.observe != nil {
		ex := Exchange{Method: req.Method, URL: req.URL.String(), Elapsed: time.Since(start), Err: err}
		if resp != nil {
			ex.Status = resp.StatusCode
		}
		c.observe(ex)
	}

	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// Close drops idle pooled connections. The client stays usable.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
