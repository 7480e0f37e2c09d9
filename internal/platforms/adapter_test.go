package platforms

import (
	"context"
	"strings"
	"testing"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		TwitterAPIKey:         "tw-key",
		TwitterAPISecret:      "tw-secret",
		TwitterRedirectURI:    "https://app.example.com/auth/twitter/callback",
		LinkedInClientID:      "li-id",
		LinkedInClientSecret:  "li-secret",
		LinkedInRedirectURI:   "https://app.example.com/auth/linkedin/callback",
		FacebookAppID:         "fb-id",
		FacebookAppSecret:     "fb-secret",
		FacebookRedirectURI:   "https://app.example.com/auth/facebook/callback",
		InstagramClientID:     "ig-id",
		InstagramClientSecret: "ig-secret",
		InstagramRedirectURI:  "https://app.example.com/auth/instagram/callback",
		TiktokClientKey:       "tt-key",
		TiktokClientSecret:    "tt-secret",
		TiktokRedirectURI:     "https://app.example.com/auth/tiktok/callback",
		GoogleClientID:        "yt-id",
		GoogleClientSecret:    "yt-secret",
		GoogleRedirectURI:     "https://app.example.com/auth/youtube/callback",
	}
}

func TestValidatePostRejectsLongCaption(t *testing.T) {
	long := strings.Repeat("x", 281)

	res, ok := validatePost(Twitter, Post{Caption: long})

	assert.False(t, ok)
	assert.False(t, res.Success)
	assert.Equal(t, FailCodeContentTooLong, res.ErrorCode)
	assert.Contains(t, res.ErrorMessage, "280")
}

func TestValidatePostCountsRunesNotBytes(t *testing.T) {
	// 280 multibyte runes must pass even though the byte length is far over.
	caption := strings.Repeat("é", 280)

	_, ok := validatePost(Twitter, Post{Caption: caption})

	assert.True(t, ok)
}

func TestValidatePostRequiresMedia(t *testing.T) {
	for _, p := range []Platform{Instagram, TikTok, YouTube} {
		res, ok := validatePost(p, Post{Caption: "hello"})

		assert.False(t, ok, p)
		assert.Equal(t, FailCodeMissingMedia, res.ErrorCode, p)
	}

	_, ok := validatePost(Twitter, Post{Caption: "hello"})
	assert.True(t, ok)
}

func TestSchedulingUnsupportedPlatforms(t *testing.T) {
	cfg := testConfig()
	adapters := []Adapter{
		NewTwitterAdapter(cfg),
		NewLinkedInAdapter(cfg),
		NewInstagramAdapter(cfg, nil),
		NewTiktokAdapter(cfg),
	}

	for _, a := range adapters {
		res, err := a.SchedulePost(context.Background(), Credentials{}, Post{Caption: "hi", MediaURLs: []string{"https://cdn.example.com/a.jpg"}}, time.Now().Add(time.Hour))

		require.NoError(t, err, a.Platform())
		assert.False(t, res.Success, a.Platform())
		assert.Equal(t, FailCodeSchedulingUnsupported, res.ErrorCode, a.Platform())
	}
}

func TestRegistryLookup(t *testing.T) {
	cfg := testConfig()
	reg := NewRegistry(
		NewTwitterAdapter(cfg),
		NewLinkedInAdapter(cfg),
		NewFacebookAdapter(cfg),
		NewInstagramAdapter(cfg, nil),
		NewTiktokAdapter(cfg),
		NewYouTubeAdapter(cfg),
	)

	for _, p := range All {
		a, ok := reg.Get(p)
		require.True(t, ok, p)
		assert.Equal(t, p, a.Platform())
	}

	_, ok := reg.Get(Platform("myspace"))
	assert.False(t, ok)

	assert.Equal(t, All, reg.Platforms())
}

func TestParsePlatform(t *testing.T) {
	p, ok := Parse("tiktok")
	require.True(t, ok)
	assert.Equal(t, TikTok, p)

	_, ok = Parse("friendster")
	assert.False(t, ok)
}

func TestAuthorizationURLsIncludeState(t *testing.T) {
	cfg := testConfig()
	adapters := []Adapter{
		NewLinkedInAdapter(cfg),
		NewFacebookAdapter(cfg),
		NewInstagramAdapter(cfg, nil),
		NewTiktokAdapter(cfg),
		NewYouTubeAdapter(cfg),
	}

	for _, a := range adapters {
		u := a.AuthorizationURL("state-token-123", "")
		assert.Contains(t, u, "state=state-token-123", a.Platform())
		assert.Contains(t, u, "redirect_uri=", a.Platform())
	}
}
