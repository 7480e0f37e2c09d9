package platforms

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/transfer"
)

const linkedinScopes = "openid profile email w_member_social"

// LinkedInAdapter uses the OpenID userinfo endpoint for identity and the
// versioned Posts API for publishing.
type LinkedInAdapter struct {
	clientID     string
	clientSecret string
	redirectURI  string
	client       doer

	authBase string // www.linkedin.com
	apiBase  string // api.linkedin.com
}

func NewLinkedInAdapter(cfg *config.Config) *LinkedInAdapter {
	return &LinkedInAdapter{
		clientID:     cfg.LinkedInClientID,
		clientSecret: cfg.LinkedInClientSecret,
		redirectURI:  cfg.LinkedInRedirectURI,
		authBase:     "https://www.linkedin.com",
		apiBase:      "https://api.linkedin.com",
	}
}

func (a *LinkedInAdapter) Platform() Platform {
	return LinkedIn
}

func (a *LinkedInAdapter) AuthorizationURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("client_id", a.clientID)
	params.Add("redirect_uri", a.redirectURI)
	params.Add("scope", linkedinScopes)
	params.Add("state", state)
	return fmt.Sprintf("%s/oauth/v2/authorization?%s", a.authBase, params.Encode())
}

func (a *LinkedInAdapter) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", a.redirectURI)
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)

	var resp transfer.LinkedInTokenResponse
	if err := postForm(ctx, a.client, LinkedIn, "token_exchange", a.authBase+"/oauth/v2/accessToken", data, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apiError(LinkedIn, "token_exchange", 0, "no access token in response")
	}

	return &TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		Scope:        resp.Scope,
	}, nil
}

func (a *LinkedInAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)

	var resp transfer.LinkedInTokenResponse
	if err := postForm(ctx, a.client, LinkedIn, "token_refresh", a.authBase+"/oauth/v2/accessToken", data, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apiError(LinkedIn, "token_refresh", 0, "no token in refresh response")
	}

	return &TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		Scope:        resp.Scope,
	}, nil
}

func (a *LinkedInAdapter) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var resp transfer.LinkedInUserInfo
	if err := getJSON(ctx, a.client, LinkedIn, "user_profile", a.apiBase+"/v2/userinfo", accessToken, &resp); err != nil {
		return nil, err
	}

	return &Profile{
		ID:              resp.Sub,
		Username:        resp.Email,
		Name:            resp.Name,
		ProfileImageURL: resp.Picture,
	}, nil
}

func (a *LinkedInAdapter) PostContent(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	if res, ok := validatePost(LinkedIn, post); !ok {
		return res, nil
	}

	req := transfer.LinkedInPostRequest{
		Author:         "urn:li:person:" + creds.AccountID,
		Commentary:     post.Caption,
		Visibility:     "PUBLIC",
		Distribution:   transfer.LinkedInDistrib{FeedDistribution: "MAIN_FEED"},
		LifecycleState: "PUBLISHED",
	}
	if len(post.MediaURLs) > 0 {
		req.Content = &transfer.LinkedInContent{
			Media: &transfer.LinkedInMediaRef{ID: post.MediaURLs[0]},
		}
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, a.client, LinkedIn, "publish", a.apiBase+"/rest/posts", creds.AccessToken, req, &resp); err != nil {
		return PostResult{}, err
	}
	if resp.ID == "" {
		return failure(FailCodePublishRejected, "no post URN returned"), nil
	}
	return success(resp.ID, "https://www.linkedin.com/feed/update/"+resp.ID), nil
}

// UploadMedia fetches the source asset, registers it with the images API and
// streams the bytes to the returned upload slot. The URN is only usable once
// the bytes land.
func (a *LinkedInAdapter) UploadMedia(ctx context.Context, creds Credentials, media Media) (string, error) {
	data, contentType, err := fetchMedia(ctx, a.client, LinkedIn, media)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"initializeUploadRequest": map[string]string{
			"owner": "urn:li:person:" + creds.AccountID,
		},
	}

	var resp struct {
		Value struct {
			UploadURL string `json:"uploadUrl"`
			Image     string `json:"image"`
		} `json:"value"`
	}
	if err := postJSON(ctx, a.client, LinkedIn, "upload_media", a.apiBase+"/rest/images?action=initializeUpload", creds.AccessToken, payload, &resp); err != nil {
		return "", err
	}
	if resp.Value.Image == "" || resp.Value.UploadURL == "" {
		return "", apiError(LinkedIn, "upload_media", 0, "no upload slot returned")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, resp.Value.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", apiError(LinkedIn, "upload_media", 0, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", contentType)

	client := a.client
	if client == nil {
		client = defaultHTTPClient
	}
	putResp, err := client.Do(req)
	if err != nil {
		return "", apiError(LinkedIn, "upload_media", 0, err.Error())
	}
	defer putResp.Body.Close()
	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		return "", apiError(LinkedIn, "upload_media", putResp.StatusCode, "upload slot rejected the bytes")
	}
	return resp.Value.Image, nil
}

func (a *LinkedInAdapter) SchedulePost(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error) {
	return schedulingUnsupported(LinkedIn), nil
}

func (a *LinkedInAdapter) VerifyCredentials(ctx context.Context, creds Credentials) bool {
	_, err := a.UserProfile(ctx, creds.AccessToken)
	return err == nil
}

func (a *LinkedInAdapter) PostMetrics(ctx context.Context, creds Credentials, postID string) (*Analytics, error) {
	endpoint := fmt.Sprintf(
		"%s/rest/organizationalEntityShareStatistics?q=organizationalEntity&shares=List(%s)",
		a.apiBase, url.QueryEscape(postID),
	)

	var resp transfer.LinkedInStatsResponse
	if err := getJSON(ctx, a.client, LinkedIn, "post_metrics", endpoint, creds.AccessToken, &resp); err != nil {
		return nil, err
	}
	if len(resp.Elements) == 0 {
		return &Analytics{}, nil
	}

	stats := resp.Elements[0].TotalShareStatistics
	return &Analytics{
		Impressions: stats.ImpressionCount,
		Likes:       stats.LikeCount,
		Comments:    stats.CommentCount,
		Shares:      stats.ShareCount,
		Engagements: stats.LikeCount + stats.CommentCount + stats.ShareCount,
	}, nil
}
