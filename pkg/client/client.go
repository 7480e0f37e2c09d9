package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Client is the single point of egress to the socialdeck backend. It attaches
// the session bearer token, retries transient failures with exponential
// backoff and normalizes failures into *BackendError.
type Client struct {
	config     *Config
	httpClient *http.Client
	sessions   *SessionManager
}

// New creates a client with the given options.
func New(options ...Option) *Client {
	config := DefaultConfig()
	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	sessions := config.Sessions
	if sessions == nil {
		sessions = NewSessionManager(nil)
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		sessions:   sessions,
	}
}

// Sessions returns the session manager the client resolves tokens from.
func (c *Client) Sessions() *SessionManager {
	return c.sessions
}

// Request issues method path against the backend, encoding body as JSON when
// non-nil and decoding the response into out when non-nil.
func (c *Client) Request(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	respBody, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// do runs the retry loop. Attempts within one logical request are strictly
// sequential; mutating methods are retried only when no response arrived or
// the backend answered 5xx, so a 4xx can never cause a duplicate side effect.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var lastErr *BackendError

	for retryCount := 0; ; retryCount++ {
		if retryCount > 0 {
			select {
			case <-time.After(c.backoff(retryCount)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, berr := c.attempt(ctx, method, path, payload)
		if berr == nil {
			return body, nil
		}
		lastErr = berr

		if !shouldRetry(method, berr, retryCount, c.config.MaxRetries) {
			break
		}
	}

	return nil, lastErr
}

// attempt performs exactly one HTTP exchange.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) ([]byte, *BackendError) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &BackendError{IsNetworkError: true, Message: err.Error()}
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	token, err := c.sessions.Token(ctx)
	if err != nil {
		return nil, &BackendError{IsNetworkError: true, Message: err.Error()}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &BackendError{IsNetworkError: true, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{IsNetworkError: true, Message: err.Error()}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, errorFromResponse(resp.StatusCode, body)
}

// errorFromResponse extracts a human-readable message from the error body,
// preferring the message field, then error, then the raw status.
func errorFromResponse(status int, body []byte) *BackendError {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Message
	if message == "" {
		message = parsed.Error
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}

	return &BackendError{
		Status:  status,
		Code:    parsed.Code,
		Message: message,
	}
}

// shouldRetry decides whether another attempt is worth making.
func shouldRetry(method string, berr *BackendError, retryCount, maxRetries int) bool {
	if retryCount >= maxRetries {
		return false
	}
	if !isIdempotent(method) && !berr.IsNetworkError && !berr.IsServerError() {
		return false
	}
	return berr.IsRetryable()
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// backoff computes base * 2^(n-1) with ±20% jitter, capped at the configured
// maximum.
func (c *Client) backoff(retryCount int) time.Duration {
	delay := c.config.RetryBaseDelay << (retryCount - 1)
	if delay > c.config.RetryMaxDelay {
		delay = c.config.RetryMaxDelay
	}

	jitter := 0.8 + 0.4*rand.Float64()
	delay = time.Duration(float64(delay) * jitter)
	if delay > c.config.RetryMaxDelay {
		delay = c.config.RetryMaxDelay
	}
	return delay
}
