package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StreamHandlers receives the events of one streaming request.
type StreamHandlers struct {
	OnEvent    func(event json.RawMessage)
	OnComplete func()
	OnError    func(err error)
}

// Stream POSTs body to path and consumes the server-sent event response.
// The bearer token travels as a header since the request is a plain POST;
// events arrive as "data: " prefixed lines carrying newline-delimited JSON.
// Streaming requests are never retried.
func (c *Client) Stream(ctx context.Context, path string, body any, handlers StreamHandlers) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &BackendError{IsNetworkError: true, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	token, err := c.sessions.Token(ctx)
	if err != nil {
		return &BackendError{IsNetworkError: true, Message: err.Error()}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		berr := &BackendError{IsNetworkError: true, Message: err.Error()}
		if handlers.OnError != nil {
			handlers.OnError(berr)
		}
		return berr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		berr := errorFromResponse(resp.StatusCode, buf.Bytes())
		if handlers.OnError != nil {
			handlers.OnError(berr)
		}
		return berr
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "" || data == "[DONE]" {
			continue
		}
		if handlers.OnEvent != nil {
			handlers.OnEvent(json.RawMessage(data))
		}
	}

	if err := scanner.Err(); err != nil {
		berr := &BackendError{IsNetworkError: true, Message: err.Error()}
		if handlers.OnError != nil {
			handlers.OnError(berr)
		}
		return berr
	}

	if handlers.OnComplete != nil {
		handlers.OnComplete()
	}
	return nil
}
