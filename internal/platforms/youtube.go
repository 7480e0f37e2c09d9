package platforms

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var youtubeScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
}

// YouTubeAdapter wraps the Google OAuth2 flow and the YouTube Data API.
// Uploads stage the source video to a temp file because the insert call wants
// a seekable reader.
type YouTubeAdapter struct {
	oauth  *oauth2.Config
	client doer

	apiBase string // www.googleapis.com
}

func NewYouTubeAdapter(cfg *config.Config) *YouTubeAdapter {
	return &YouTubeAdapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       youtubeScopes,
			Endpoint:     google.Endpoint,
		},
		apiBase: "https://www.googleapis.com",
	}
}

func (a *YouTubeAdapter) Platform() Platform {
	return YouTube
}

func (a *YouTubeAdapter) AuthorizationURL(state, codeChallenge string) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
	if codeChallenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	return a.oauth.AuthCodeURL(state, opts...)
}

func (a *YouTubeAdapter) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apiError(YouTube, "token_exchange", 0, err.Error())
	}
	if token.RefreshToken == "" {
		return nil, apiError(YouTube, "token_exchange", 0, "no refresh token granted; re-consent required")
	}

	return &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    int(time.Until(token.Expiry).Seconds()),
	}, nil
}

func (a *YouTubeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	source := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, apiError(YouTube, "token_refresh", 0, err.Error())
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	return &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: newRefresh,
		TokenType:    token.TokenType,
		ExpiresIn:    int(time.Until(token.Expiry).Seconds()),
	}, nil
}

func (a *YouTubeAdapter) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	endpoint := a.apiBase + "/oauth2/v2/userinfo"

	var resp transfer.GoogleUserInfo
	if err := getJSON(ctx, a.client, YouTube, "user_profile", endpoint, accessToken, &resp); err != nil {
		return nil, err
	}

	return &Profile{
		ID:              resp.ID,
		Username:        resp.Email,
		Name:            resp.Name,
		ProfileImageURL: resp.Picture,
	}, nil
}

func (a *YouTubeAdapter) PostContent(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	return a.upload(ctx, creds, post, time.Time{})
}

func (a *YouTubeAdapter) upload(ctx context.Context, creds Credentials, post Post, publishAt time.Time) (PostResult, error) {
	if res, ok := validatePost(YouTube, post); !ok {
		return res, nil
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken}))
	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return PostResult{}, apiError(YouTube, "publish", 0, err.Error())
	}

	tempPath, err := a.stageVideo(ctx, post.MediaURLs[0])
	if err != nil {
		return PostResult{}, err
	}
	defer os.Remove(tempPath)

	file, err := os.Open(tempPath)
	if err != nil {
		return PostResult{}, apiError(YouTube, "publish", 0, err.Error())
	}
	defer file.Close()

	title := post.Caption
	if len(title) > 100 {
		title = title[:100]
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: post.Caption,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}
	if !publishAt.IsZero() {
		video.Status.PrivacyStatus = "private"
		video.Status.PublishAt = publishAt.Format(time.RFC3339)
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	resp, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		return PostResult{}, apiError(YouTube, "publish", 0, err.Error())
	}
	return success(resp.Id, "https://youtu.be/"+resp.Id), nil
}

func (a *YouTubeAdapter) stageVideo(ctx context.Context, sourceURL string) (string, error) {
	data, _, err := fetchMedia(ctx, a.client, YouTube, Media{SourceURL: sourceURL})
	if err != nil {
		return "", err
	}

	tempFile, err := os.CreateTemp("", "upload-*.mp4")
	if err != nil {
		return "", apiError(YouTube, "upload_media", 0, err.Error())
	}
	defer tempFile.Close()

	if _, err := tempFile.Write(data); err != nil {
		os.Remove(tempFile.Name())
		return "", apiError(YouTube, "upload_media", 0, err.Error())
	}
	return tempFile.Name(), nil
}

// UploadMedia passes the URL through; upload staging happens inside the
// insert call.
func (a *YouTubeAdapter) UploadMedia(ctx context.Context, creds Credentials, media Media) (string, error) {
	return media.SourceURL, nil
}

// SchedulePost uploads the video private with a publishAt timestamp, which
// YouTube flips to public on its own.
func (a *YouTubeAdapter) SchedulePost(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error) {
	if at.Before(time.Now()) {
		return failure(FailCodePublishRejected, "scheduled time is in the past"), nil
	}
	return a.upload(ctx, creds, post, at)
}

func (a *YouTubeAdapter) VerifyCredentials(ctx context.Context, creds Credentials) bool {
	_, err := a.UserProfile(ctx, creds.AccessToken)
	return err == nil
}

func (a *YouTubeAdapter) PostMetrics(ctx context.Context, creds Credentials, postID string) (*Analytics, error) {
	endpoint := fmt.Sprintf(
		"%s/youtube/v3/videos?part=statistics&id=%s",
		a.apiBase, url.QueryEscape(postID),
	)

	var resp transfer.YoutubeVideoStats
	if err := getJSON(ctx, a.client, YouTube, "post_metrics", endpoint, creds.AccessToken, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return &Analytics{}, nil
	}

	stats := resp.Items[0].Statistics
	views, _ := strconv.ParseInt(stats.ViewCount, 10, 64)
	likes, _ := strconv.ParseInt(stats.LikeCount, 10, 64)
	comments, _ := strconv.ParseInt(stats.CommentCount, 10, 64)

	return &Analytics{
		Impressions: views,
		Likes:       likes,
		Comments:    comments,
		Engagements: likes + comments,
	}, nil
}

// Revoke invalidates the Google token on disconnect.
func (a *YouTubeAdapter) Revoke(ctx context.Context, creds Credentials) error {
	endpoint := "https://oauth2.googleapis.com/revoke"
	data := url.Values{}
	data.Set("token", creds.AccessToken)
	return postForm(ctx, a.client, YouTube, "revoke", endpoint, data, nil)
}
