package platforms

import (
	"context"
	"fmt"
	"time"
)

// PostResult is the structured outcome of a posting operation. Expected
// business failures (caption too long, missing media, scheduling not
// supported) come back as a failed result, never as an error: errors are
// reserved for infrastructure problems, so callers can tell "couldn't even
// try" apart from "tried and the platform said no".
type PostResult struct {
	Success      bool   `json:"success"`
	PostID       string `json:"post_id,omitempty"`
	PostURL      string `json:"post_url,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Failure codes returned in PostResult.ErrorCode.
const (
	FailCodeContentTooLong        = "content_too_long"
	FailCodeMissingMedia          = "missing_media"
	FailCodeSchedulingUnsupported = "scheduling_unsupported"
	FailCodePublishRejected       = "publish_rejected"
)

func success(postID, postURL string) PostResult {
	return PostResult{Success: true, PostID: postID, PostURL: postURL}
}

func failure(code, format string, args ...any) PostResult {
	return PostResult{Success: false, ErrorCode: code, ErrorMessage: fmt.Sprintf(format, args...)}
}

// validatePost runs the local checks shared by every adapter before any
// network call is made.
func validatePost(p Platform, post Post) (PostResult, bool) {
	lim := LimitsFor(p)
	if lim.MaxCharacters > 0 && len([]rune(post.Caption)) > lim.MaxCharacters {
		return failure(FailCodeContentTooLong,
			"caption is %d characters; %s allows at most %d", len([]rune(post.Caption)), p, lim.MaxCharacters), false
	}
	if lim.RequiresMedia && len(post.MediaURLs) == 0 {
		return failure(FailCodeMissingMedia, "%s posts require at least one media item", p), false
	}
	return PostResult{}, true
}

func schedulingUnsupported(p Platform) PostResult {
	return failure(FailCodeSchedulingUnsupported, "%s does not support native post scheduling", p)
}

// Adapter is the capability contract every platform implements. One
// implementation per platform; callers select one through the Registry
// instead of switching on platform names.
type Adapter interface {
	Platform() Platform

	// AuthorizationURL builds the provider authorize endpoint with client
	// id, scopes, redirect URI and the anti-CSRF state.
	AuthorizationURL(state, codeChallenge string) string

	// ExchangeCode trades the callback code for tokens. Platforms with a
	// short-lived/long-lived split perform both steps and return only the
	// final long-lived token.
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)

	// RefreshToken obtains a fresh access token.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// UserProfile fetches the connected account's identity.
	UserProfile(ctx context.Context, accessToken string) (*Profile, error)

	// PostContent publishes immediately. Business failures come back in the
	// result; only infrastructure failures error.
	PostContent(ctx context.Context, creds Credentials, post Post) (PostResult, error)

	// UploadMedia makes the source media usable by the platform, either by
	// re-hosting it or by passing the public URL through.
	UploadMedia(ctx context.Context, creds Credentials, media Media) (string, error)

	// SchedulePost asks the platform to publish at a later time. Platforms
	// without native scheduling fail fast with a structured result.
	SchedulePost(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error)

	// VerifyCredentials is a cheap liveness probe; it never errors.
	VerifyCredentials(ctx context.Context, creds Credentials) bool

	// PostMetrics normalizes the platform's analytics for one post.
	PostMetrics(ctx context.Context, creds Credentials, postID string) (*Analytics, error)
}

// Registry holds the configured adapters keyed by platform.
type Registry struct {
	adapters map[Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// Get returns the adapter for p.
func (r *Registry) Get(p Platform) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.adapters))
	for _, p := range All {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
