package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		client := New(nil)

		require.NotNil(t, client)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
		assert.Nil(t, client.limiter, "no rate limit by default")
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		client := New(&Config{})

		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.NotEmpty(t, client.userAgent)
	})

	t.Run("headers are copied", func(t *testing.T) {
		headers := http.Header{"Authorization": {"Bearer one"}}
		client := New(&Config{Headers: headers})
		headers.Set("Authorization", "Bearer two")

		assert.Equal(t, "Bearer one", client.headers.Get("Authorization"))
	})
}

func TestDo_DefaultHeaders(t *testing.T) {
	var gotUA, gotAuth, gotTrace string
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotTrace = r.Header.Get("X-Trace")
		w.WriteHeader(http.StatusOK)
	})

	client := newClient(t, &Config{
		UserAgent: "reviewboard-test/1.0",
		Headers: http.Header{
			"Authorization": {"Bearer secret"},
			"X-Trace":       {"default"},
		},
	})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("X-Trace", "explicit")

	resp, err := client.Do(t.Context(), req)
	require.NoError(t, err)
	drain(t, resp)

	assert.Equal(t, "reviewboard-test/1.0", gotUA)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "explicit", gotTrace, "request headers win over defaults")
}

func TestDo_ContextCancellation(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	client := newClient(t, nil)

	ctx, cancel := context.WithCancel(t.Context())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	cancel()

	resp, err := client.Do(ctx, req)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_DefaultTimeout(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	client := newClient(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(t.Context(), req)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_BodyReadableAfterReturn(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("queue payload"))
	})

	client := newClient(t, &Config{DefaultTimeout: 2 * time.Second})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	defer drain(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "default timeout must not cancel the body early")
	assert.Equal(t, "queue payload", string(body))
}

func TestDo_RateLimit(t *testing.T) {
	var hits atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	client := newClient(t, &Config{RateLimit: 1})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	drain(t, resp)

	// The bucket is empty; a short deadline cannot wait for the next token.
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	resp, err = client.Get(ctx, server.URL)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, int32(1), hits.Load())
}

func TestDo_Observe(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	var seen []Exchange
	client := newClient(t, &Config{Observe: func(ex Exchange) { seen = append(seen, ex) }})

	resp, err := client.Get(t.Context(), server.URL+"/api/admin_queue")
	require.NoError(t, err)
	drain(t, resp)

	require.Len(t, seen, 1)
	assert.Equal(t, http.MethodGet, seen[0].Method)
	assert.Equal(t, server.URL+"/api/admin_queue", seen[0].URL)
	assert.Equal(t, http.StatusAccepted, seen[0].Status)
	assert.NoError(t, seen[0].Err)
}

func TestDo_ObserveFailure(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {})
	url := server.URL
	server.Close()

	var seen []Exchange
	client := newClient(t, &Config{Observe: func(ex Exchange) { seen = append(seen, ex) }})

	resp, err := client.Get(t.Context(), url)
	require.Error(t, err)
	assert.Nil(t, resp)
	require.Len(t, seen, 1)
	assert.Zero(t, seen[0].Status)
	assert.Error(t, seen[0].Err)
}

func TestDoJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		server := serve(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			var in struct {
				ID string `json:"id"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"` + in.ID + `","claimed":true}`))
		})
		client := newClient(t, nil)

		var out struct {
			ID      string `json:"id"`
			Claimed bool   `json:"claimed"`
		}
		err := client.DoJSON(t.Context(), http.MethodPost, server.URL, map[string]string{"id": "sub-1"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "sub-1", out.ID)
		assert.True(t, out.Claimed)
	})

	t.Run("empty body decodes to zero value", func(t *testing.T) {
		server := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		client := newClient(t, nil)

		var out map[string]any
		require.NoError(t, client.DoJSON(t.Context(), http.MethodGet, server.URL, nil, &out))
		assert.Nil(t, out)
	})

	t.Run("json error body", func(t *testing.T) {
		server := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"already claimed"}`))
		})
		client := newClient(t, nil)

		err := client.DoJSON(t.Context(), http.MethodPost, server.URL, nil, nil)
		require.Error(t, err)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusConflict, se.Code)
		assert.Equal(t, "already claimed", se.Message)
		assert.Equal(t, http.StatusConflict, StatusCode(err))
	})

	t.Run("plain text error body", func(t *testing.T) {
		server := serve(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		})
		client := newClient(t, nil)

		err := client.DoJSON(t.Context(), http.MethodGet, server.URL, nil, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, StatusCode(err))
		assert.Contains(t, err.Error(), "upstream down")
	})

	t.Run("malformed response", func(t *testing.T) {
		server := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items": [`))
		})
		client := newClient(t, nil)

		var out map[string]any
		err := client.DoJSON(t.Context(), http.MethodGet, server.URL, nil, &out)
		require.Error(t, err)
		assert.Zero(t, StatusCode(err))
		assert.Contains(t, err.Error(), "failed to decode")
	})
}

func TestClose(t *testing.T) {
	client := New(nil)
	client.Close()
	client.Close()
}
