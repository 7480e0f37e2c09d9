package transfer

type InstagramShortLivedToken struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
}

type InstagramLongLivedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type InstagramUserInfo struct {
	UserID         string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	AccountType    string `json:"account_type"`
	ProfilePicture string `json:"profile_picture_url"`
}

type InstagramMediaContainer struct {
	ID string `json:"id"`
}

type InstagramInsightsResponse struct {
	Data []InstagramInsight `json:"data"`
}

type InstagramInsight struct {
	Name   string `json:"name"`
	Values []struct {
		Value int64 `json:"value"`
	} `json:"values"`
}

type InstagramErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}
