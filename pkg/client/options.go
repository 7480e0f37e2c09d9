package client

import (
	"net/http"
	"time"
)

// Option configures the client.
type Option func(*Config)

// Config holds the client configuration.
type Config struct {
	BaseURL        string
	HTTPClient     *http.Client
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	UserAgent      string
	Sessions       *SessionManager
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:3000",
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 1 * time.Second,
		RetryMaxDelay:  10 * time.Second,
		UserAgent:      "socialdeck-go/1.0",
	}
}

// WithBaseURL sets the backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = hc
	}
}

// WithMaxRetries sets the retry ceiling for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryDelays sets the exponential backoff base delay and its cap.
func WithRetryDelays(base, max time.Duration) Option {
	return func(c *Config) {
		c.RetryBaseDelay = base
		c.RetryMaxDelay = max
	}
}

// WithSessionManager injects the session used to resolve bearer tokens.
func WithSessionManager(sm *SessionManager) Option {
	return func(c *Config) {
		c.Sessions = sm
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}
