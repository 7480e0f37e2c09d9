package platforms

import "time"

// Platform identifies a supported social network.
type Platform string

const (
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
)

// All lists every supported platform in display order.
var All = []Platform{Twitter, LinkedIn, Facebook, Instagram, TikTok, YouTube}

// Parse returns the Platform for s, reporting whether it is supported.
func Parse(s string) (Platform, bool) {
	p := Platform(s)
	switch p {
	case Twitter, LinkedIn, Facebook, Instagram, TikTok, YouTube:
		return p, true
	}
	return "", false
}

func (p Platform) String() string {
	return string(p)
}

// Limits captures a platform's posting constraints.
type Limits struct {
	MaxCharacters      int
	MaxMediaBytes      int64
	RequiresMedia      bool
	SupportsScheduling bool
}

var platformLimits = map[Platform]Limits{
	Twitter:   {MaxCharacters: 280, MaxMediaBytes: 5 * 1024 * 1024, SupportsScheduling: false},
	LinkedIn:  {MaxCharacters: 3000, MaxMediaBytes: 100 * 1024 * 1024, SupportsScheduling: false},
	Facebook:  {MaxCharacters: 63206, MaxMediaBytes: 100 * 1024 * 1024, SupportsScheduling: true},
	Instagram: {MaxCharacters: 2200, MaxMediaBytes: 100 * 1024 * 1024, RequiresMedia: true, SupportsScheduling: false},
	TikTok:    {MaxCharacters: 2200, MaxMediaBytes: 4 * 1024 * 1024 * 1024, RequiresMedia: true, SupportsScheduling: false},
	YouTube:   {MaxCharacters: 5000, MaxMediaBytes: 128 * 1024 * 1024 * 1024, RequiresMedia: true, SupportsScheduling: true},
}

// LimitsFor returns the posting limits for p.
func LimitsFor(p Platform) Limits {
	return platformLimits[p]
}

// Credentials is the decrypted token material an adapter call runs with.
type Credentials struct {
	AccessToken  string
	TokenSecret  string // OAuth 1.0a only
	RefreshToken string
	AccountID    string
	ExpiresAt    time.Time
}

// TokenResponse is the normalized result of a code exchange or refresh.
type TokenResponse struct {
	AccessToken  string
	TokenSecret  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int
}

// ExpiresAt converts the relative lifetime into an absolute timestamp.
func (t *TokenResponse) ExpiresAt() time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Profile is the normalized account identity fetched after connecting.
type Profile struct {
	ID              string
	Username        string
	Name            string
	ProfileImageURL string
}

// Post is the content handed to PostContent or SchedulePost.
type Post struct {
	Caption   string
	MediaURLs []string
	MediaType string // "image" or "video"
}

// Media is one asset handed to UploadMedia.
type Media struct {
	SourceURL   string
	ContentType string
}

// Analytics is the common shape every platform's metrics normalize into.
type Analytics struct {
	Impressions int64 `json:"impressions"`
	Likes       int64 `json:"likes"`
	Comments    int64 `json:"comments"`
	Shares      int64 `json:"shares"`
	Engagements int64 `json:"engagements"`
}
