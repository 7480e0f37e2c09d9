package platforms

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/transfer"
)

const tiktokScopes = "user.info.basic,user.info.profile,video.publish,video.upload"

// TiktokAdapter implements the TikTok OAuth dialect and direct posting.
// TikTok pulls media from public URLs, so UploadMedia passes the source URL
// through, and it has no native scheduling.
type TiktokAdapter struct {
	clientKey    string
	clientSecret string
	redirectURI  string
	client       doer

	authBase string
	apiBase  string
}

func NewTiktokAdapter(cfg *config.Config) *TiktokAdapter {
	return &TiktokAdapter{
		clientKey:    cfg.TiktokClientKey,
		clientSecret: cfg.TiktokClientSecret,
		redirectURI:  cfg.TiktokRedirectURI,
		authBase:     "https://www.tiktok.com",
		apiBase:      "https://open.tiktokapis.com",
	}
}

func (a *TiktokAdapter) Platform() Platform {
	return TikTok
}

func (a *TiktokAdapter) AuthorizationURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Add("client_key", a.clientKey)
	params.Add("scope", tiktokScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", a.redirectURI)
	params.Add("state", state)
	if codeChallenge != "" {
		params.Add("code_challenge", codeChallenge)
		params.Add("code_challenge_method", "S256")
	}
	return fmt.Sprintf("%s/v2/auth/authorize?%s", a.authBase, params.Encode())
}

func (a *TiktokAdapter) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("client_key", a.clientKey)
	data.Set("client_secret", a.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", a.redirectURI)

	var resp transfer.TiktokTokenResponse
	if err := postForm(ctx, a.client, TikTok, "token_exchange", a.apiBase+"/v2/oauth/token/", data, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apiError(TikTok, "token_exchange", 0, resp.ErrorDescription)
	}

	return &TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

func (a *TiktokAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("client_key", a.clientKey)
	data.Set("client_secret", a.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	var resp transfer.TiktokTokenResponse
	if err := postForm(ctx, a.client, TikTok, "token_refresh", a.apiBase+"/v2/oauth/token/", data, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apiError(TikTok, "token_refresh", 0, resp.ErrorDescription)
	}

	return &TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

func (a *TiktokAdapter) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	endpoint := a.apiBase + "/v2/user/info/?fields=open_id,avatar_url,display_name,username"

	var resp transfer.TiktokUserResponse
	if err := getJSON(ctx, a.client, TikTok, "user_profile", endpoint, accessToken, &resp); err != nil {
		return nil, err
	}
	if !resp.Error.OK() {
		return nil, apiError(TikTok, "user_profile", 0, resp.Error.Message)
	}

	u := resp.Data.User
	return &Profile{
		ID:              u.OpenID,
		Username:        u.Username,
		Name:            u.DisplayName,
		ProfileImageURL: u.AvatarURL,
	}, nil
}

func (a *TiktokAdapter) PostContent(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	if res, ok := validatePost(TikTok, post); !ok {
		return res, nil
	}

	if post.MediaType == "image" {
		return a.postPhotos(ctx, creds, post)
	}
	return a.postVideo(ctx, creds, post)
}

func (a *TiktokAdapter) postVideo(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	payload := transfer.TiktokVideoUploadRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:                 post.Caption,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: post.MediaURLs[0],
		},
	}

	var resp transfer.TiktokUploadResponse
	err := postJSON(ctx, a.client, TikTok, "post_content", a.apiBase+"/v2/post/publish/video/init/", creds.AccessToken, payload, &resp)
	if err != nil {
		return PostResult{}, err
	}
	if !resp.Error.OK() {
		return failure(FailCodePublishRejected, "%s", resp.Error.Message), nil
	}

	return success(resp.Data.PublishID, ""), nil
}

func (a *TiktokAdapter) postPhotos(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	payload := transfer.TiktokPhotoUploadRequest{
		PostInfo: transfer.TiktokPhotoPostInfo{
			Title:        post.Caption,
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
			AutoAddMusic: true,
		},
		SourceInfo: transfer.TiktokPhotoSourceInfo{
			Source:          "PULL_FROM_URL",
			PhotoCoverIndex: 1,
			PhotoImages:     post.MediaURLs,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}

	var resp transfer.TiktokUploadResponse
	err := postJSON(ctx, a.client, TikTok, "post_content", a.apiBase+"/v2/post/publish/content/init/", creds.AccessToken, payload, &resp)
	if err != nil {
		return PostResult{}, err
	}
	if !resp.Error.OK() {
		return failure(FailCodePublishRejected, "%s", resp.Error.Message), nil
	}

	return success(resp.Data.PublishID, ""), nil
}

// UploadMedia passes the public URL through: TikTok fetches PULL_FROM_URL
// sources itself.
func (a *TiktokAdapter) UploadMedia(ctx context.Context, creds Credentials, media Media) (string, error) {
	if !strings.HasPrefix(media.SourceURL, "https://") && !strings.HasPrefix(media.SourceURL, "http://") {
		return "", apiError(TikTok, "upload_media", 0, "source media must be a public URL")
	}
	return media.SourceURL, nil
}

func (a *TiktokAdapter) SchedulePost(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error) {
	return schedulingUnsupported(TikTok), nil
}

func (a *TiktokAdapter) VerifyCredentials(ctx context.Context, creds Credentials) bool {
	_, err := a.UserProfile(ctx, creds.AccessToken)
	return err == nil
}

func (a *TiktokAdapter) PostMetrics(ctx context.Context, creds Credentials, postID string) (*Analytics, error) {
	endpoint := a.apiBase + "/v2/video/query/?fields=id,view_count,like_count,comment_count,share_count"
	payload := map[string]any{
		"filters": map[string]any{"video_ids": []string{postID}},
	}

	var resp transfer.TiktokVideoQueryResponse
	if err := postJSON(ctx, a.client, TikTok, "post_metrics", endpoint, creds.AccessToken, payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Error.OK() {
		return nil, apiError(TikTok, "post_metrics", 0, resp.Error.Message)
	}
	if len(resp.Data.Videos) == 0 {
		return nil, apiError(TikTok, "post_metrics", 0, "video not found")
	}

	v := resp.Data.Videos[0]
	return &Analytics{
		Impressions: v.ViewCount,
		Likes:       v.LikeCount,
		Comments:    v.CommentCount,
		Shares:      v.ShareCount,
		Engagements: v.LikeCount + v.CommentCount + v.ShareCount,
	}, nil
}

// Revoke invalidates the access token at TikTok. Best effort during
// disconnect.
func (a *TiktokAdapter) Revoke(ctx context.Context, creds Credentials) error {
	data := url.Values{}
	data.Set("client_key", a.clientKey)
	data.Set("client_secret", a.clientSecret)
	data.Set("token", creds.AccessToken)
	return postForm(ctx, a.client, TikTok, "revoke", a.apiBase+"/v2/oauth/revoke/", data, nil)
}
