package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTiktokAdapter(server *httptest.Server) *TiktokAdapter {
	a := NewTiktokAdapter(testConfig())
	a.authBase = server.URL
	a.apiBase = server.URL
	a.client = server.Client()
	return a
}

func TestTiktokExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/oauth/token/", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tt-key", r.FormValue("client_key"))
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "the-code", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"act.abc","refresh_token":"rft.def","expires_in":86400,"token_type":"Bearer","scope":"user.info.basic"}`))
	}))
	defer server.Close()

	token, err := newTiktokAdapter(server).ExchangeCode(context.Background(), "the-code")

	require.NoError(t, err)
	assert.Equal(t, "act.abc", token.AccessToken)
	assert.Equal(t, "rft.def", token.RefreshToken)
	assert.Equal(t, 86400, token.ExpiresIn)
	assert.False(t, token.ExpiresAt().IsZero())
}

func TestTiktokExchangeCodeErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Authorization code is expired."}`))
	}))
	defer server.Close()

	_, err := newTiktokAdapter(server).ExchangeCode(context.Background(), "stale")

	require.Error(t, err)
	apiErr, ok := AsExternalAPIError(err)
	require.True(t, ok)
	assert.Equal(t, TikTok, apiErr.Platform)
	assert.Contains(t, apiErr.Message, "expired")
}

func TestTiktokPublishRejectionIsResultNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/post/publish/video/init/", r.URL.Path)
		assert.Equal(t, "Bearer act.abc", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{},"error":{"code":"spam_risk_too_many_posts","message":"Daily post cap reached.","log_id":"x"}}`))
	}))
	defer server.Close()

	creds := Credentials{AccessToken: "act.abc", AccountID: "open-id"}
	post := Post{Caption: "hello", MediaURLs: []string{"https://cdn.example.com/v.mp4"}, MediaType: "video"}

	res, err := newTiktokAdapter(server).PostContent(context.Background(), creds, post)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, FailCodePublishRejected, res.ErrorCode)
	assert.Contains(t, res.ErrorMessage, "Daily post cap")
}

func TestTiktokPostVideoSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"publish_id":"pub-123"},"error":{"code":"ok","message":""}}`))
	}))
	defer server.Close()

	creds := Credentials{AccessToken: "act.abc"}
	post := Post{Caption: "hello", MediaURLs: []string{"https://cdn.example.com/v.mp4"}, MediaType: "video"}

	res, err := newTiktokAdapter(server).PostContent(context.Background(), creds, post)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "pub-123", res.PostID)
}

func TestTiktokMetricsNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/video/query/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"videos":[{"id":"v1","view_count":1000,"like_count":40,"comment_count":5,"share_count":3}]},"error":{"code":"ok"}}`))
	}))
	defer server.Close()

	analytics, err := newTiktokAdapter(server).PostMetrics(context.Background(), Credentials{AccessToken: "act"}, "v1")

	require.NoError(t, err)
	assert.Equal(t, int64(1000), analytics.Impressions)
	assert.Equal(t, int64(40), analytics.Likes)
	assert.Equal(t, int64(48), analytics.Engagements)
}

func TestTiktokUploadMediaRejectsNonURLSource(t *testing.T) {
	a := NewTiktokAdapter(testConfig())

	_, err := a.UploadMedia(context.Background(), Credentials{}, Media{SourceURL: "/tmp/local.mp4"})

	require.Error(t, err)
}
