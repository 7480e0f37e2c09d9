package platforms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/transfer"
)

const facebookScopes = "pages_show_list,pages_read_engagement,pages_manage_posts,business_management"

// FacebookAdapter posts on behalf of a Facebook Page. The code exchange
// yields a user token that is immediately traded for a long-lived one; the
// page token stored as the credential comes from ListPages afterwards.
type FacebookAdapter struct {
	clientID     string
	clientSecret string
	redirectURI  string
	client       doer

	authBase  string // www.facebook.com
	graphBase string // graph.facebook.com
}

func NewFacebookAdapter(cfg *config.Config) *FacebookAdapter {
	return &FacebookAdapter{
		clientID:     cfg.FacebookAppID,
		clientSecret: cfg.FacebookAppSecret,
		redirectURI:  cfg.FacebookRedirectURI,
		authBase:     "https://www.facebook.com",
		graphBase:    "https://graph.facebook.com",
	}
}

func (a *FacebookAdapter) Platform() Platform {
	return Facebook
}

func (a *FacebookAdapter) AuthorizationURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Add("client_id", a.clientID)
	params.Add("redirect_uri", a.redirectURI)
	params.Add("scope", facebookScopes)
	params.Add("response_type", "code")
	params.Add("state", state)
	return fmt.Sprintf("%s/v21.0/dialog/oauth?%s", a.authBase, params.Encode())
}

func (a *FacebookAdapter) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	endpoint := fmt.Sprintf(
		"%s/v21.0/oauth/access_token?client_id=%s&redirect_uri=%s&client_secret=%s&code=%s",
		a.graphBase, a.clientID, url.QueryEscape(a.redirectURI), a.clientSecret, url.QueryEscape(code),
	)

	var short transfer.FacebookTokenResponse
	if err := getJSON(ctx, a.client, Facebook, "token_exchange", endpoint, "", &short); err != nil {
		return nil, err
	}
	if short.AccessToken == "" {
		return nil, apiError(Facebook, "token_exchange", 0, "no access token in response")
	}
	return a.longLivedToken(ctx, short.AccessToken)
}

func (a *FacebookAdapter) longLivedToken(ctx context.Context, userToken string) (*TokenResponse, error) {
	endpoint := fmt.Sprintf(
		"%s/v21.0/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		a.graphBase, a.clientID, a.clientSecret, url.QueryEscape(userToken),
	)

	var resp transfer.FacebookTokenResponse
	if err := getJSON(ctx, a.client, Facebook, "token_exchange", endpoint, "", &resp); err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
	}, nil
}

// RefreshToken re-runs the fb_exchange_token grant against the stored
// long-lived token, which extends its lifetime.
func (a *FacebookAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := a.longLivedToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apiError(Facebook, "token_refresh", 0, "no token in refresh response")
	}
	return resp, nil
}

// ListPages returns the pages the user token can manage. Each page carries
// its own access token, which is what gets stored as the posting credential.
func (a *FacebookAdapter) ListPages(ctx context.Context, accessToken string) ([]transfer.FacebookPage, error) {
	endpoint := fmt.Sprintf("%s/v21.0/me/accounts?access_token=%s", a.graphBase, url.QueryEscape(accessToken))

	var resp transfer.FacebookPagesResponse
	if err := getJSON(ctx, a.client, Facebook, "list_pages", endpoint, "", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *FacebookAdapter) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	endpoint := fmt.Sprintf(
		"%s/v21.0/me?fields=id,name,picture&access_token=%s",
		a.graphBase, url.QueryEscape(accessToken),
	)

	var resp transfer.FacebookProfile
	if err := getJSON(ctx, a.client, Facebook, "user_profile", endpoint, "", &resp); err != nil {
		return nil, err
	}

	return &Profile{
		ID:              resp.ID,
		Name:            resp.Name,
		ProfileImageURL: resp.Picture.Data.URL,
	}, nil
}

func (a *FacebookAdapter) PostContent(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	return a.publish(ctx, creds, post, time.Time{})
}

func (a *FacebookAdapter) publish(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error) {
	if res, ok := validatePost(Facebook, post); !ok {
		return res, nil
	}

	var endpoint string
	payload := map[string]any{
		"access_token": creds.AccessToken,
	}

	if len(post.MediaURLs) > 0 {
		endpoint = fmt.Sprintf("%s/v21.0/%s/photos", a.graphBase, creds.AccountID)
		payload["url"] = post.MediaURLs[0]
		payload["caption"] = post.Caption
	} else {
		endpoint = fmt.Sprintf("%s/v21.0/%s/feed", a.graphBase, creds.AccountID)
		payload["message"] = post.Caption
	}

	if !at.IsZero() {
		payload["published"] = false
		payload["scheduled_publish_time"] = strconv.FormatInt(at.Unix(), 10)
	}

	var resp transfer.FacebookPostResponse
	if err := postJSON(ctx, a.client, Facebook, "publish", endpoint, "", payload, &resp); err != nil {
		return PostResult{}, err
	}

	postID := resp.PostID
	if postID == "" {
		postID = resp.ID
	}
	if postID == "" {
		return failure(FailCodePublishRejected, "no post ID returned"), nil
	}
	return success(postID, "https://www.facebook.com/"+postID), nil
}

// UploadMedia is a pass-through; the Graph API pulls photos from public URLs.
func (a *FacebookAdapter) UploadMedia(ctx context.Context, creds Credentials, media Media) (string, error) {
	return media.SourceURL, nil
}

// SchedulePost uses the page feed's native scheduled_publish_time, which must
// be between 10 minutes and 30 days out.
func (a *FacebookAdapter) SchedulePost(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error) {
	if at.Before(time.Now().Add(10 * time.Minute)) {
		return failure(FailCodePublishRejected, "scheduled time must be at least 10 minutes out"), nil
	}
	return a.publish(ctx, creds, post, at)
}

func (a *FacebookAdapter) VerifyCredentials(ctx context.Context, creds Credentials) bool {
	_, err := a.UserProfile(ctx, creds.AccessToken)
	return err == nil
}

func (a *FacebookAdapter) PostMetrics(ctx context.Context, creds Credentials, postID string) (*Analytics, error) {
	endpoint := fmt.Sprintf(
		"%s/v21.0/%s/insights?metric=post_impressions,post_reactions_like_total&access_token=%s",
		a.graphBase, postID, url.QueryEscape(creds.AccessToken),
	)

	var resp transfer.FacebookInsightsResponse
	if err := getJSON(ctx, a.client, Facebook, "post_metrics", endpoint, "", &resp); err != nil {
		return nil, err
	}

	analytics := &Analytics{}
	for _, metric := range resp.Data {
		var value int64
		if len(metric.Values) > 0 {
			value = metric.Values[0].Value
		}
		switch metric.Name {
		case "post_impressions":
			analytics.Impressions = value
		case "post_reactions_like_total":
			analytics.Likes = value
		}
	}
	analytics.Engagements = analytics.Likes + analytics.Comments + analytics.Shares
	return analytics, nil
}
