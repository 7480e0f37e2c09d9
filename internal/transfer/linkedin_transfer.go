package transfer

type LinkedInTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_token_expires_in"`
	Scope            string `json:"scope"`
}

type LinkedInUserInfo struct {
	Sub        string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Email      string `json:"email"`
}

type LinkedInPostRequest struct {
	Author         string             `json:"author"`
	Commentary     string             `json:"commentary"`
	Visibility     string             `json:"visibility"`
	Distribution   LinkedInDistrib    `json:"distribution"`
	Content        *LinkedInContent   `json:"content,omitempty"`
	LifecycleState string             `json:"lifecycleState"`
}

type LinkedInDistrib struct {
	FeedDistribution string `json:"feedDistribution"`
}

type LinkedInContent struct {
	Media *LinkedInMediaRef `json:"media,omitempty"`
}

type LinkedInMediaRef struct {
	ID string `json:"id"`
}

type LinkedInStatsResponse struct {
	Elements []struct {
		TotalShareStatistics struct {
			ImpressionCount int64 `json:"impressionCount"`
			LikeCount       int64 `json:"likeCount"`
			CommentCount    int64 `json:"commentCount"`
			ShareCount      int64 `json:"shareCount"`
			EngagementCount int64 `json:"engagement"`
		} `json:"totalShareStatistics"`
	} `json:"elements"`
}
