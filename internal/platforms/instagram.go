package platforms

import (
	"context"
	"fmt"
	"net/url"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/transfer"
)

const instagramScopes = "instagram_business_basic,instagram_business_content_publish"

// InstagramAdapter talks to the Instagram Graph API. Token exchange is a
// two-step dance: the authorization code buys a short-lived token which is
// then traded for a ~60 day long-lived one; only the long-lived token is
// returned. Posting is container-create-then-publish.
type InstagramAdapter struct {
	clientID     string
	clientSecret string
	redirectURI  string
	client       doer
	store        Storage

	authBase  string // www.instagram.com
	apiBase   string // api.instagram.com (short-lived exchange)
	graphBase string // graph.instagram.com
}

func NewInstagramAdapter(cfg *config.Config, store Storage) *InstagramAdapter {
	return &InstagramAdapter{
		clientID:     cfg.InstagramClientID,
		clientSecret: cfg.InstagramClientSecret,
		redirectURI:  cfg.InstagramRedirectURI,
		store:        store,
		authBase:     "https://www.instagram.com",
		apiBase:      "https://api.instagram.com",
		graphBase:    "https://graph.instagram.com",
	}
}

func (a *InstagramAdapter) Platform() Platform {
	return Instagram
}

func (a *InstagramAdapter) AuthorizationURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Add("client_id", a.clientID)
	params.Add("scope", instagramScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", a.redirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s/oauth/authorize?%s", a.authBase, params.Encode())
}

func (a *InstagramAdapter) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	shortLived, err := a.shortLivedToken(ctx, code)
	if err != nil {
		return nil, err
	}
	return a.longLivedToken(ctx, shortLived.AccessToken)
}

func (a *InstagramAdapter) shortLivedToken(ctx context.Context, code string) (*transfer.InstagramShortLivedToken, error) {
	data := url.Values{}
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", a.redirectURI)
	data.Set("code", code)

	var resp transfer.InstagramShortLivedToken
	if err := postForm(ctx, a.client, Instagram, "token_exchange", a.apiBase+"/oauth/access_token", data, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apiError(Instagram, "token_exchange", 0, "no short-lived token in response")
	}
	return &resp, nil
}

func (a *InstagramAdapter) longLivedToken(ctx context.Context, shortLived string) (*TokenResponse, error) {
	endpoint := fmt.Sprintf(
		"%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		a.graphBase, a.clientSecret, url.QueryEscape(shortLived),
	)

	var resp transfer.InstagramLongLivedToken
	if err := getJSON(ctx, a.client, Instagram, "token_exchange", endpoint, "", &resp); err != nil {
		return nil, err
	}

	// Instagram has no separate refresh token; the long-lived token refreshes
	// itself via ig_refresh_token.
	return &TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

func (a *InstagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	endpoint := fmt.Sprintf(
		"%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		a.graphBase, url.QueryEscape(refreshToken),
	)

	var resp transfer.InstagramLongLivedToken
	if err := getJSON(ctx, a.client, Instagram, "token_refresh", endpoint, "", &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apiError(Instagram, "token_refresh", 0, "no token in refresh response")
	}

	return &TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

func (a *InstagramAdapter) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	endpoint := fmt.Sprintf(
		"%s/me?fields=id,username,name,account_type,profile_picture_url&access_token=%s",
		a.graphBase, url.QueryEscape(accessToken),
	)

	var resp transfer.InstagramUserInfo
	if err := getJSON(ctx, a.client, Instagram, "user_profile", endpoint, "", &resp); err != nil {
		return nil, err
	}

	return &Profile{
		ID:              resp.UserID,
		Username:        resp.Username,
		Name:            resp.Name,
		ProfileImageURL: resp.ProfilePicture,
	}, nil
}

func (a *InstagramAdapter) PostContent(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	if res, ok := validatePost(Instagram, post); !ok {
		return res, nil
	}

	var containerID string
	var err error
	if len(post.MediaURLs) > 1 {
		containerID, err = a.createCarouselContainer(ctx, creds, post)
	} else {
		containerID, err = a.createContainer(ctx, creds, post.MediaURLs[0], post.Caption, false)
	}
	if err != nil {
		return PostResult{}, err
	}

	mediaID, err := a.publishContainer(ctx, creds, containerID)
	if err != nil {
		return PostResult{}, err
	}

	return success(mediaID, ""), nil
}

func (a *InstagramAdapter) createContainer(ctx context.Context, creds Credentials, mediaURL, caption string, carouselItem bool) (string, error) {
	endpoint := fmt.Sprintf("%s/v21.0/%s/media", a.graphBase, creds.AccountID)

	payload := map[string]any{
		"image_url":    mediaURL,
		"access_token": creds.AccessToken,
	}
	if carouselItem {
		payload["is_carousel_item"] = true
	} else {
		payload["caption"] = caption
	}

	var resp transfer.InstagramMediaContainer
	if err := postJSON(ctx, a.client, Instagram, "create_container", endpoint, "", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", apiError(Instagram, "create_container", 0, "no container ID returned")
	}
	return resp.ID, nil
}

func (a *InstagramAdapter) createCarouselContainer(ctx context.Context, creds Credentials, post Post) (string, error) {
	children := make([]string, 0, len(post.MediaURLs))
	for _, mediaURL := range post.MediaURLs {
		id, err := a.createContainer(ctx, creds, mediaURL, "", true)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	endpoint := fmt.Sprintf("%s/v21.0/%s/media", a.graphBase, creds.AccountID)
	payload := map[string]any{
		"media_type":   "CAROUSEL",
		"caption":      post.Caption,
		"children":     children,
		"access_token": creds.AccessToken,
	}

	var resp transfer.InstagramMediaContainer
	if err := postJSON(ctx, a.client, Instagram, "create_container", endpoint, "", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", apiError(Instagram, "create_container", 0, "no carousel container ID returned")
	}
	return resp.ID, nil
}

func (a *InstagramAdapter) publishContainer(ctx context.Context, creds Credentials, containerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v21.0/%s/media_publish", a.graphBase, creds.AccountID)
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": creds.AccessToken,
	}

	var resp transfer.InstagramMediaContainer
	if err := postJSON(ctx, a.client, Instagram, "publish", endpoint, "", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", apiError(Instagram, "publish", 0, "no media ID returned")
	}
	return resp.ID, nil
}

// UploadMedia re-hosts the asset on public storage so Graph API containers
// can pull it from image_url. Without storage the source URL passes through.
func (a *InstagramAdapter) UploadMedia(ctx context.Context, creds Credentials, media Media) (string, error) {
	if a.store == nil {
		return media.SourceURL, nil
	}
	return rehostMedia(ctx, a.client, a.store, Instagram, media)
}

func (a *InstagramAdapter) SchedulePost(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error) {
	return schedulingUnsupported(Instagram), nil
}

func (a *InstagramAdapter) VerifyCredentials(ctx context.Context, creds Credentials) bool {
	_, err := a.UserProfile(ctx, creds.AccessToken)
	return err == nil
}

func (a *InstagramAdapter) PostMetrics(ctx context.Context, creds Credentials, postID string) (*Analytics, error) {
	endpoint := fmt.Sprintf(
		"%s/v21.0/%s/insights?metric=impressions,likes,comments,shares,total_interactions&access_token=%s",
		a.graphBase, postID, url.QueryEscape(creds.AccessToken),
	)

	var resp transfer.InstagramInsightsResponse
	if err := getJSON(ctx, a.client, Instagram, "post_metrics", endpoint, "", &resp); err != nil {
		return nil, err
	}

	analytics := &Analytics{}
	for _, insight := range resp.Data {
		var value int64
		if len(insight.Values) > 0 {
			value = insight.Values[0].Value
		}
		switch insight.Name {
		case "impressions":
			analytics.Impressions = value
		case "likes":
			analytics.Likes = value
		case "comments":
			analytics.Comments = value
		case "shares":
			analytics.Shares = value
		case "total_interactions":
			analytics.Engagements = value
		}
	}
	if analytics.Engagements == 0 {
		analytics.Engagements = analytics.Likes + analytics.Comments + analytics.Shares
	}
	return analytics, nil
}
