package transfer

type TwitterTweetRequest struct {
	Text  string             `json:"text"`
	Media *TwitterTweetMedia `json:"media,omitempty"`
}

type TwitterTweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type TwitterTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type TwitterUser struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

type TwitterMetricsResponse struct {
	Data struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			LikeCount       int64 `json:"like_count"`
			QuoteCount      int64 `json:"quote_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

type TwitterMediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}
