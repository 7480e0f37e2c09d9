package config

import (
	"os"
	"strings"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	TwitterAPIKey         string
	TwitterAPISecret      string
	TwitterRedirectURI    string
	LinkedInClientID      string
	LinkedInClientSecret  string
	LinkedInRedirectURI   string
	FacebookAppID         string
	FacebookAppSecret     string
	FacebookRedirectURI   string
	InstagramClientID     string
	InstagramClientSecret string
	InstagramRedirectURI  string
	TiktokClientKey       string
	TiktokClientSecret    string
	TiktokRedirectURI     string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	GoogleLoginRedirect   string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	R2                    R2
	SecretKey             string
	CookieName            string
}

func LoadConfig() *Config {
	return &Config{
		TwitterAPIKey:         getEnv("TWITTER_API_KEY", ""),
		TwitterAPISecret:      getEnv("TWITTER_API_SECRET", ""),
		TwitterRedirectURI:    getEnv("TWITTER_REDIRECT_URI", ""),
		LinkedInClientID:      getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedInClientSecret:  getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedInRedirectURI:   getEnv("LINKEDIN_REDIRECT_URI", ""),
		FacebookAppID:         getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:     getEnv("FACEBOOK_APP_SECRET", ""),
		FacebookRedirectURI:   getEnv("FACEBOOK_REDIRECT_URI", ""),
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		InstagramRedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		TiktokClientKey:       getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret:    getEnv("TIKTOK_CLIENT_SECRET", ""),
		TiktokRedirectURI:     getEnv("TIKTOK_REDIRECT_URI", ""),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", ""),
		GoogleLoginRedirect:   getEnv("GOOGLE_LOGIN_REDIRECT_URI", ""),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", ""),
		FrontendURL:           strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "socialdeck_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
