package platforms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/transfer"
)

// TwitterAdapter is the one OAuth 1.0a adapter. Its "state" is the request
// token from RequestToken, and ExchangeCode takes "oauth_token|oauth_verifier"
// joined with a pipe. User-context tokens never expire, so RefreshToken is a
// no-op that hands back what it was given.
type TwitterAdapter struct {
	consumerKey    string
	consumerSecret string
	callbackURL    string
	client         doer

	authBase   string // api.twitter.com (oauth + v2)
	uploadBase string // upload.twitter.com
}

func NewTwitterAdapter(cfg *config.Config) *TwitterAdapter {
	return &TwitterAdapter{
		consumerKey:    cfg.TwitterAPIKey,
		consumerSecret: cfg.TwitterAPISecret,
		callbackURL:    cfg.TwitterRedirectURI,
		authBase:       "https://api.twitter.com",
		uploadBase:     "https://upload.twitter.com",
	}
}

func (a *TwitterAdapter) Platform() Platform {
	return Twitter
}

// RequestToken fetches a temporary token to start the 1.0a dance. The caller
// passes the returned token to AuthorizationURL as the state.
func (a *TwitterAdapter) RequestToken(ctx context.Context) (string, error) {
	endpoint := a.authBase + "/oauth/request_token"
	extra := map[string]string{"oauth_callback": a.callbackURL}

	body, err := a.signedRequest(ctx, http.MethodPost, endpoint, extra, "", "")
	if err != nil {
		return "", err
	}

	values, err := url.ParseQuery(body)
	if err != nil {
		return "", apiError(Twitter, "request_token", 0, "malformed request token response")
	}
	token := values.Get("oauth_token")
	if token == "" || values.Get("oauth_callback_confirmed") != "true" {
		return "", apiError(Twitter, "request_token", 0, "callback not confirmed")
	}
	return token, nil
}

// AuthorizationURL treats state as the request token from RequestToken.
// codeChallenge is ignored; 1.0a has no PKCE.
func (a *TwitterAdapter) AuthorizationURL(state, codeChallenge string) string {
	return fmt.Sprintf("%s/oauth/authorize?oauth_token=%s", a.authBase, url.QueryEscape(state))
}

// ExchangeCode expects "oauth_token|oauth_verifier". The resulting token and
// secret never expire.
func (a *TwitterAdapter) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	oauthToken, verifier, found := strings.Cut(code, "|")
	if !found || oauthToken == "" || verifier == "" {
		return nil, apiError(Twitter, "token_exchange", 0, "missing oauth_token or oauth_verifier")
	}

	endpoint := a.authBase + "/oauth/access_token"
	extra := map[string]string{"oauth_verifier": verifier}

	body, err := a.signedRequest(ctx, http.MethodPost, endpoint, extra, oauthToken, "")
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, apiError(Twitter, "token_exchange", 0, "malformed access token response")
	}
	accessToken := values.Get("oauth_token")
	tokenSecret := values.Get("oauth_token_secret")
	if accessToken == "" || tokenSecret == "" {
		return nil, apiError(Twitter, "token_exchange", 0, "no token in response")
	}

	return &TokenResponse{
		AccessToken: accessToken,
		TokenSecret: tokenSecret,
	}, nil
}

func (a *TwitterAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return &TokenResponse{AccessToken: refreshToken}, nil
}

func (a *TwitterAdapter) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	// 1.0a needs both halves of the credential; callers pack them as
	// "token|secret" the same way ExchangeCode packs its input.
	token, secret, _ := strings.Cut(accessToken, "|")
	endpoint := a.authBase + "/2/users/me?user.fields=profile_image_url"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apiError(Twitter, "user_profile", 0, err.Error())
	}
	req.Header.Set("Authorization", a.authorizationHeader(http.MethodGet, endpoint, nil, token, secret))

	var resp transfer.TwitterUser
	if err := execute(a.client, Twitter, "user_profile", req, &resp); err != nil {
		return nil, err
	}

	return &Profile{
		ID:              resp.Data.ID,
		Username:        resp.Data.Username,
		Name:            resp.Data.Name,
		ProfileImageURL: resp.Data.ProfileImageURL,
	}, nil
}

func (a *TwitterAdapter) PostContent(ctx context.Context, creds Credentials, post Post) (PostResult, error) {
	if res, ok := validatePost(Twitter, post); !ok {
		return res, nil
	}

	tweet := transfer.TwitterTweetRequest{Text: post.Caption}
	if len(post.MediaURLs) > 0 {
		mediaIDs := make([]string, 0, len(post.MediaURLs))
		for _, mediaURL := range post.MediaURLs {
			id, err := a.UploadMedia(ctx, creds, Media{SourceURL: mediaURL})
			if err != nil {
				return PostResult{}, err
			}
			mediaIDs = append(mediaIDs, id)
		}
		tweet.Media = &transfer.TwitterTweetMedia{MediaIDs: mediaIDs}
	}

	endpoint := a.authBase + "/2/tweets"
	req, err := a.signedJSONRequest(ctx, endpoint, tweet, creds)
	if err != nil {
		return PostResult{}, err
	}

	var resp transfer.TwitterTweetResponse
	if err := execute(a.client, Twitter, "publish", req, &resp); err != nil {
		return PostResult{}, err
	}
	if resp.Data.ID == "" {
		return failure(FailCodePublishRejected, "no tweet ID returned"), nil
	}
	return success(resp.Data.ID, "https://twitter.com/i/web/status/"+resp.Data.ID), nil
}

// UploadMedia downloads the source asset and pushes it through the v1.1
// multipart upload endpoint, returning the media ID for attachment.
func (a *TwitterAdapter) UploadMedia(ctx context.Context, creds Credentials, media Media) (string, error) {
	data, _, err := fetchMedia(ctx, a.client, Twitter, media)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormField("media")
	if err != nil {
		return "", apiError(Twitter, "upload_media", 0, err.Error())
	}
	if _, err := part.Write(data); err != nil {
		return "", apiError(Twitter, "upload_media", 0, err.Error())
	}
	if err := writer.Close(); err != nil {
		return "", apiError(Twitter, "upload_media", 0, err.Error())
	}

	endpoint := a.uploadBase + "/1.1/media/upload.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", apiError(Twitter, "upload_media", 0, err.Error())
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	// RFC 5849 only folds form-encoded bodies into the signature base;
	// multipart bodies stay out of it.
	req.Header.Set("Authorization", a.authorizationHeader(http.MethodPost, endpoint, nil, creds.AccessToken, creds.TokenSecret))

	var resp transfer.TwitterMediaUploadResponse
	if err := execute(a.client, Twitter, "upload_media", req, &resp); err != nil {
		return "", err
	}
	if resp.MediaIDString == "" {
		return "", apiError(Twitter, "upload_media", 0, "no media ID returned")
	}
	return resp.MediaIDString, nil
}

func (a *TwitterAdapter) SchedulePost(ctx context.Context, creds Credentials, post Post, at time.Time) (PostResult, error) {
	return schedulingUnsupported(Twitter), nil
}

func (a *TwitterAdapter) VerifyCredentials(ctx context.Context, creds Credentials) bool {
	_, err := a.UserProfile(ctx, creds.AccessToken+"|"+creds.TokenSecret)
	return err == nil
}

func (a *TwitterAdapter) PostMetrics(ctx context.Context, creds Credentials, postID string) (*Analytics, error) {
	endpoint := fmt.Sprintf("%s/2/tweets/%s?tweet.fields=public_metrics", a.authBase, url.PathEscape(postID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apiError(Twitter, "post_metrics", 0, err.Error())
	}
	req.Header.Set("Authorization", a.authorizationHeader(http.MethodGet, endpoint, nil, creds.AccessToken, creds.TokenSecret))

	var resp transfer.TwitterMetricsResponse
	if err := execute(a.client, Twitter, "post_metrics", req, &resp); err != nil {
		return nil, err
	}

	m := resp.Data.PublicMetrics
	return &Analytics{
		Impressions: m.ImpressionCount,
		Likes:       m.LikeCount,
		Comments:    m.ReplyCount,
		Shares:      m.RetweetCount + m.QuoteCount,
		Engagements: m.LikeCount + m.ReplyCount + m.RetweetCount + m.QuoteCount,
	}, nil
}

// signedRequest runs a form POST with an OAuth 1.0a header and returns the
// raw body, used for the token endpoints which answer in query-string form.
func (a *TwitterAdapter) signedRequest(ctx context.Context, method, endpoint string, extra map[string]string, token, tokenSecret string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return "", apiError(Twitter, "oauth", 0, err.Error())
	}
	req.Header.Set("Authorization", a.authorizationHeader(method, endpoint, extra, token, tokenSecret))

	client := a.client
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", apiError(Twitter, "oauth", 0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apiError(Twitter, "oauth", resp.StatusCode, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiError(Twitter, "oauth", resp.StatusCode, snippet(body))
	}
	return string(body), nil
}

func (a *TwitterAdapter) signedJSONRequest(ctx context.Context, endpoint string, payload any, creds Credentials) (*http.Request, error) {
	req, err := jsonRequest(ctx, endpoint, payload)
	if err != nil {
		return nil, apiError(Twitter, "publish", 0, err.Error())
	}
	// JSON bodies are excluded from the 1.0a signature base.
	req.Header.Set("Authorization", a.authorizationHeader(http.MethodPost, endpoint, nil, creds.AccessToken, creds.TokenSecret))
	return req, nil
}

// authorizationHeader builds the OAuth 1.0a Authorization header per RFC
// 5849: collect oauth_* plus query and extra params, percent-encode, sort,
// sign the base string with HMAC-SHA1.
func (a *TwitterAdapter) authorizationHeader(method, rawURL string, extra map[string]string, token, tokenSecret string) string {
	oauthParams := map[string]string{
		"oauth_consumer_key":     a.consumerKey,
		"oauth_nonce":            nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if token != "" {
		oauthParams["oauth_token"] = token
	}
	for k, v := range extra {
		oauthParams[k] = v
	}

	parsed, _ := url.Parse(rawURL)
	baseURL := parsed.Scheme + "://" + parsed.Host + parsed.Path

	allParams := map[string]string{}
	for k, v := range oauthParams {
		allParams[k] = v
	}
	for k, vs := range parsed.Query() {
		if len(vs) > 0 {
			allParams[k] = vs[0]
		}
	}

	keys := make([]string, 0, len(allParams))
	for k := range allParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(allParams[k]))
	}
	paramString := strings.Join(pairs, "&")

	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(paramString)
	signingKey := percentEncode(a.consumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headerKeys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)

	parts := make([]string, 0, len(headerKeys))
	for _, k := range headerKeys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, percentEncode(k), percentEncode(oauthParams[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// percentEncode applies the strict RFC 3986 encoding OAuth 1.0a requires;
// url.QueryEscape is close but turns spaces into '+'.
func percentEncode(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func nonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}
