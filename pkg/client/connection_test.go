package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectReturnsProviderRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/oauth/instagram", r.URL.Path)
		json.NewEncoder(w).Encode(initiationResponse{RedirectURL: "https://www.instagram.com/oauth/authorize?x=1"})
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	defer m.Close()

	redirect, err := m.Connect(context.Background(), "instagram")
	require.NoError(t, err)
	assert.Equal(t, "https://www.instagram.com/oauth/authorize?x=1", redirect)
	assert.Equal(t, "instagram", m.Connecting())
}

func TestTwitterUsesItsOwnInitiationEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode(initiationResponse{RedirectURL: "https://api.twitter.com/oauth/authorize?oauth_token=t"})
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	defer m.Close()

	_, err := m.Connect(context.Background(), "twitter")
	require.NoError(t, err)
	assert.Equal(t, "/api/twitter/auth", path)
}

func TestConnectRetriesOnceWhenWorkspaceNotReady(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"failed to initialize workspace","code":"WORKSPACE_NOT_READY"}`))
			return
		}
		json.NewEncoder(w).Encode(initiationResponse{RedirectURL: "https://example.com/authorize"})
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	defer m.Close()

	redirect, err := m.Connect(context.Background(), "tiktok")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/authorize", redirect)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestConnectSurfacesOtherServerErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"not signed in"}`))
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	defer m.Close()

	_, err := m.Connect(context.Background(), "linkedin")
	require.Error(t, err)
	// 401 is not retried at all
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Empty(t, m.Connecting())
	assert.NotEmpty(t, m.LastError("linkedin"))
}

func TestCallbackErrorMappedAndSurfaced(t *testing.T) {
	m := NewConnectionManager(newTestClient("http://unused"))
	defer m.Close()

	query := url.Values{}
	query.Set("oauth_error", "user_denied")
	query.Set("platform", "facebook")

	status, err := m.ResolveCallback(context.Background(), query)
	require.Error(t, err)
	assert.Nil(t, status)
	assert.Equal(t, oauthErrorMessages["user_denied"], m.LastError("facebook"))
}

func TestCallbackSuccessReconcilesUntilConnected(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/credentials/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		connected := atomic.AddInt32(&fetches, 1) >= 2
		json.NewEncoder(w).Encode(StatusMap{
			"instagram": {Connected: connected, AccountName: "brand"},
		})
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	defer m.Close()
	m.reconciler.delays = fastDelays()

	query := url.Values{}
	query.Set("oauth_success", "instagram")

	status, err := m.ResolveCallback(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
	assert.True(t, status["instagram"].Connected)
	assert.Equal(t, "brand", status["instagram"].AccountName)
	assert.Empty(t, m.Connecting())
}

func TestDisconnectSurfacesServerDetailVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"credential is in use by 3 scheduled posts"}`))
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	defer m.Close()

	_, err := m.Disconnect(context.Background(), "youtube")
	require.Error(t, err)
	assert.Equal(t, "credential is in use by 3 scheduled posts", m.LastError("youtube"))
}

func TestHardTimeoutClearsConnectingState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(initiationResponse{RedirectURL: "https://example.com/authorize"})
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	defer m.Close()
	m.timeouts = map[string]time.Duration{"tiktok": 10 * time.Millisecond}

	fired := make(chan string, 1)
	m.OnTimeout = func(platform string) { fired <- platform }

	_, err := m.Connect(context.Background(), "tiktok")
	require.NoError(t, err)

	select {
	case platform := <-fired:
		assert.Equal(t, "tiktok", platform)
	case <-time.After(time.Second):
		t.Fatal("timeout callback never fired")
	}
	assert.Empty(t, m.Connecting())
	assert.NotEmpty(t, m.LastError("tiktok"))
}

func TestClosedManagerIgnoresTimerCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(initiationResponse{RedirectURL: "https://example.com/authorize"})
	}))
	defer srv.Close()

	m := NewConnectionManager(newTestClient(srv.URL))
	m.timeouts = map[string]time.Duration{"twitter": 10 * time.Millisecond}
	m.OnTimeout = func(platform string) {
		t.Errorf("timeout fired after Close for %s", platform)
	}

	_, err := m.Connect(context.Background(), "twitter")
	require.NoError(t, err)
	m.Close()

	time.Sleep(20 * time.Millisecond)
}
