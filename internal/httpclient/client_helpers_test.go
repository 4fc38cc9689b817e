package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// newClient builds a Client for one test; a nil cfg means DefaultConfig.
func newClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	if cfg == nil {
		d := DefaultConfig()
		cfg = &d
	}
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

// serve starts an httptest server that lives until the test ends.
func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// drain closes resp's body; a nil response is ignored.
func drain(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	if err := resp.Body.Close(); err != nil {
		t.Logf("closing response body: %v", err)
	}
}
