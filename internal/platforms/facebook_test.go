package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFacebookAdapter(server *httptest.Server) *FacebookAdapter {
	a := NewFacebookAdapter(testConfig())
	a.authBase = server.URL
	a.graphBase = server.URL
	a.client = server.Client()
	return a
}

func TestFacebookExchangeChainsLongLivedGrant(t *testing.T) {
	var calls []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Query().Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("grant_type") == "fb_exchange_token" {
			assert.Equal(t, "short-token", r.URL.Query().Get("fb_exchange_token"))
			w.Write([]byte(`{"access_token":"long-token","token_type":"bearer","expires_in":5183944}`))
			return
		}
		w.Write([]byte(`{"access_token":"short-token","token_type":"bearer","expires_in":5000}`))
	}))
	defer server.Close()

	token, err := newFacebookAdapter(server).ExchangeCode(context.Background(), "the-code")

	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "fb_exchange_token", calls[1])
	assert.Equal(t, "long-token", token.AccessToken)
}

func TestFacebookListPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v21.0/me/accounts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"page-1","name":"Brand Page","access_token":"page-token","category":"Retail"}]}`))
	}))
	defer server.Close()

	pages, err := newFacebookAdapter(server).ListPages(context.Background(), "user-token")

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "page-1", pages[0].ID)
	assert.Equal(t, "page-token", pages[0].AccessToken)
}

func TestFacebookListPagesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	pages, err := newFacebookAdapter(server).ListPages(context.Background(), "user-token")

	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestFacebookTextPostGoesToFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v21.0/page-1/feed", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello page", payload["message"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"page-1_777"}`))
	}))
	defer server.Close()

	creds := Credentials{AccessToken: "page-token", AccountID: "page-1"}

	res, err := newFacebookAdapter(server).PostContent(context.Background(), creds, Post{Caption: "hello page"})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "page-1_777", res.PostID)
}

func TestFacebookScheduleTooSoonIsRejectedLocally(t *testing.T) {
	a := NewFacebookAdapter(testConfig())
	creds := Credentials{AccessToken: "page-token", AccountID: "page-1"}

	res, err := a.SchedulePost(context.Background(), creds, Post{Caption: "soon"}, time.Now().Add(time.Minute))

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, FailCodePublishRejected, res.ErrorCode)
}

func TestFacebookSchedulePostSendsScheduledPublishTime(t *testing.T) {
	at := time.Now().Add(time.Hour).Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, false, payload["published"])
		assert.NotEmpty(t, payload["scheduled_publish_time"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"page-1_888"}`))
	}))
	defer server.Close()

	creds := Credentials{AccessToken: "page-token", AccountID: "page-1"}

	res, err := newFacebookAdapter(server).SchedulePost(context.Background(), creds, Post{Caption: "later"}, at)

	require.NoError(t, err)
	assert.True(t, res.Success)
}
