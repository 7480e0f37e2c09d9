package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return New(
		WithBaseURL(baseURL),
		WithRetryDelays(time.Millisecond, 5*time.Millisecond),
	)
}

func TestRequestRetriesTransientGetFailures(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Request(context.Background(), http.MethodGet, "/api/credentials/status", nil, nil)

	require.Error(t, err)
	berr, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, berr.Status)
	assert.True(t, berr.IsServerError())
	// maxRetries(3) + the initial attempt
	assert.Equal(t, int32(4), atomic.LoadInt32(&attempts))
}

func TestRequestRecoversAfterTransientFailure(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	c := newTestClient(srv.URL)
	err := c.Request(context.Background(), http.MethodGet, "/ping", nil, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestPostNeverRetriedOnClientError(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad payload"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Request(context.Background(), http.MethodPost, "/api/posts/create", map[string]string{"caption": "x"}, nil)

	require.Error(t, err)
	berr, ok := AsBackendError(err)
	require.True(t, ok)
	assert.True(t, berr.IsClientError())
	assert.Equal(t, "bad payload", berr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestPostRetriedOnServerError(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Request(context.Background(), http.MethodPost, "/api/posts/create", map[string]string{"caption": "x"}, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestPostRetriedOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse every connection

	c := newTestClient(srv.URL)
	err := c.Request(context.Background(), http.MethodPost, "/api/posts/create", map[string]string{}, nil)

	require.Error(t, err)
	berr, ok := AsBackendError(err)
	require.True(t, ok)
	assert.True(t, berr.IsNetworkError)
}

func TestErrorMessagePrefersMessageField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"already connected","error":"conflict","code":"ALREADY_CONNECTED"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Request(context.Background(), http.MethodPost, "/x", map[string]string{}, nil)

	berr, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, "already connected", berr.Message)
	assert.Equal(t, "ALREADY_CONNECTED", berr.Code)
}

func TestBackoffBounds(t *testing.T) {
	c := New(WithRetryDelays(time.Second, 10*time.Second))

	for retry := 1; retry <= 5; retry++ {
		d := c.backoff(retry)
		base := time.Second << (retry - 1)
		if base > 10*time.Second {
			base = 10 * time.Second
		}
		min := time.Duration(float64(base) * 0.8)
		assert.GreaterOrEqual(t, d, min, "retry %d", retry)
		assert.LessOrEqual(t, d, 10*time.Second, "retry %d", retry)
	}
}

func TestBearerTokenAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sm := NewSessionManager(func(ctx context.Context) (string, error) {
		return "tok-123", nil
	})
	c := New(WithBaseURL(srv.URL), WithSessionManager(sm))

	require.NoError(t, c.Request(context.Background(), http.MethodGet, "/me", nil, nil))
	assert.Equal(t, "Bearer tok-123", got)
}

func TestAnonymousRequestProceedsWithoutSession(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))

	require.NoError(t, c.Request(context.Background(), http.MethodGet, "/public", nil, nil))
	assert.Empty(t, got)
}
