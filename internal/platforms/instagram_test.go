package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstagramAdapter(server *httptest.Server) *InstagramAdapter {
	a := NewInstagramAdapter(testConfig(), nil)
	a.authBase = server.URL
	a.apiBase = server.URL
	a.graphBase = server.URL
	a.client = server.Client()
	return a
}

func TestInstagramExchangeReturnsLongLivedToken(t *testing.T) {
	var shortLivedCalls, longLivedCalls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth/access_token":
			shortLivedCalls++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
			w.Write([]byte(`{"access_token":"short-lived","user_id":17841400000000000}`))
		case "/access_token":
			longLivedCalls++
			assert.Equal(t, "ig_exchange_token", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "short-lived", r.URL.Query().Get("access_token"))
			w.Write([]byte(`{"access_token":"long-lived","token_type":"bearer","expires_in":5183944}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	token, err := newInstagramAdapter(server).ExchangeCode(context.Background(), "the-code")

	require.NoError(t, err)
	assert.Equal(t, 1, shortLivedCalls)
	assert.Equal(t, 1, longLivedCalls)
	// Only the long-lived token survives; the short-lived one is discarded.
	assert.Equal(t, "long-lived", token.AccessToken)
	assert.Equal(t, 5183944, token.ExpiresIn)
}

func TestInstagramPostPublishesContainer(t *testing.T) {
	var mu struct{ creates, publishes int }

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v21.0/ig-account/media":
			mu.creates++
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "https://cdn.example.com/a.jpg", payload["image_url"])
			assert.Equal(t, "caption here", payload["caption"])
			w.Write([]byte(`{"id":"container-1"}`))
		case "/v21.0/ig-account/media_publish":
			mu.publishes++
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "container-1", payload["creation_id"])
			w.Write([]byte(`{"id":"media-9"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	creds := Credentials{AccessToken: "long-lived", AccountID: "ig-account"}
	post := Post{Caption: "caption here", MediaURLs: []string{"https://cdn.example.com/a.jpg"}, MediaType: "image"}

	res, err := newInstagramAdapter(server).PostContent(context.Background(), creds, post)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "media-9", res.PostID)
	assert.Equal(t, 1, mu.creates)
	assert.Equal(t, 1, mu.publishes)
}

func TestInstagramCarouselCreatesChildContainers(t *testing.T) {
	var creates int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v21.0/ig-account/media":
			creates++
			w.Write([]byte(`{"id":"c"}`))
		case "/v21.0/ig-account/media_publish":
			w.Write([]byte(`{"id":"media-carousel"}`))
		}
	}))
	defer server.Close()

	creds := Credentials{AccessToken: "long-lived", AccountID: "ig-account"}
	post := Post{
		Caption:   "three pics",
		MediaURLs: []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg", "https://cdn.example.com/3.jpg"},
		MediaType: "image",
	}

	res, err := newInstagramAdapter(server).PostContent(context.Background(), creds, post)

	require.NoError(t, err)
	assert.True(t, res.Success)
	// Three children plus the carousel container itself.
	assert.Equal(t, 4, creates)
}

func TestInstagramPostWithoutMediaFailsLocally(t *testing.T) {
	// No server: the media requirement must fail before any network call.
	a := NewInstagramAdapter(testConfig(), nil)

	res, err := a.PostContent(context.Background(), Credentials{AccountID: "x"}, Post{Caption: "text only"})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, FailCodeMissingMedia, res.ErrorCode)
}

type fakeStore struct {
	key         string
	data        []byte
	contentType string
}

func (s *fakeStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.key = key
	s.data = data
	s.contentType = contentType
	return "https://media.example.com/" + key, nil
}

func TestInstagramUploadMediaRehostsThroughStorage(t *testing.T) {
	sourceBytes := []byte("jpeg-bytes-from-origin")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/source.jpg", r.URL.Path)
		w.Write(sourceBytes)
	}))
	defer server.Close()

	store := &fakeStore{}
	a := newInstagramAdapter(server)
	a.store = store

	hosted, err := a.UploadMedia(context.Background(), Credentials{},
		Media{SourceURL: server.URL + "/source.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/"+store.key, hosted)
	assert.Contains(t, store.key, "media/instagram/")
	assert.Equal(t, sourceBytes, store.data)
	assert.Equal(t, "image/jpeg", store.contentType)
}

func TestInstagramUploadMediaPassThroughWithoutStorage(t *testing.T) {
	a := NewInstagramAdapter(testConfig(), nil)

	hosted, err := a.UploadMedia(context.Background(), Credentials{},
		Media{SourceURL: "https://cdn.example.com/a.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.jpg", hosted)
}
