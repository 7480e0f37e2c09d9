package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// doer is satisfied by *http.Client; adapters take it so tests can stub the
// wire.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// postForm sends an x-www-form-urlencoded POST and decodes the JSON body
// into out. Non-2xx responses become an ExternalAPIError carrying as much of
// the body as fits.
func postForm(ctx context.Context, client doer, p Platform, op, endpoint string, data url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return apiError(p, op, 0, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return execute(client, p, op, req, out)
}

// postJSON sends a JSON POST with an optional bearer token.
func postJSON(ctx context.Context, client doer, p Platform, op, endpoint, accessToken string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apiError(p, op, 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apiError(p, op, 0, err.Error())
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return execute(client, p, op, req, out)
}

// jsonRequest builds a JSON POST without an Authorization header, for
// adapters that sign requests themselves.
func jsonRequest(ctx context.Context, endpoint string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	return req, nil
}

// getJSON sends a GET with an optional bearer token.
func getJSON(ctx context.Context, client doer, p Platform, op, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apiError(p, op, 0, err.Error())
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return execute(client, p, op, req, out)
}

func execute(client doer, p Platform, op string, req *http.Request, out any) error {
	if client == nil {
		client = defaultHTTPClient
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return apiError(p, op, 0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		slog.Info(err.Error())
		return apiError(p, op, resp.StatusCode, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(p, op, resp.StatusCode, snippet(body))
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			slog.Info(err.Error())
			return apiError(p, op, resp.StatusCode, "failed to decode response: "+err.Error())
		}
	}
	return nil
}

func snippet(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
