package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Platform-specific hard timeouts for a connect attempt. Facebook and
// Instagram run longest because of the page-selection steps.
var connectTimeouts = map[string]time.Duration{
	"twitter":   45 * time.Second,
	"linkedin":  60 * time.Second,
	"facebook":  90 * time.Second,
	"instagram": 90 * time.Second,
	"tiktok":    60 * time.Second,
	"youtube":   60 * time.Second,
}

const timeoutWarningLead = 30 * time.Second

// workspaceRetryCode is the structured signal that workspace provisioning
// raced the connect attempt. The prose match below is kept for older
// backends that only put the hint in the message text.
const workspaceRetryCode = "WORKSPACE_NOT_READY"

type initiationResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

type disconnectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// ConnectionManager orchestrates per-platform connect and disconnect
// attempts: initiation, timeout tracking, callback resolution and error
// surfacing. One manager serves one user session.
type ConnectionManager struct {
	client     *Client
	reconciler *Reconciler

	// Fired from timer goroutines; both are optional.
	OnTimeoutWarning func(platform string)
	OnTimeout        func(platform string)

	mu         sync.Mutex
	closed     bool
	connecting string
	errors     map[string]string
	timeouts   map[string]time.Duration
	warnTimers map[string]*time.Timer
	failTimers map[string]*time.Timer
}

func NewConnectionManager(c *Client) *ConnectionManager {
	m := &ConnectionManager{
		client:     c,
		errors:     make(map[string]string),
		timeouts:   connectTimeouts,
		warnTimers: make(map[string]*time.Timer),
		failTimers: make(map[string]*time.Timer),
	}
	m.reconciler = NewReconciler(c.FetchConnectionStatus)
	return m
}

// Connecting reports which platform has a connect attempt in flight, or "".
func (m *ConnectionManager) Connecting() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connecting
}

// LastError returns the last surfaced error message for platform.
func (m *ConnectionManager) LastError(platform string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[platform]
}

// Connect starts an OAuth connection for platform and returns the provider
// URL the caller must navigate to. Twitter initiates at its own endpoint
// because it still runs OAuth 1.0a for media-upload signing; everything else
// goes through the shared OAuth 2.0 path. A workspace-not-ready failure is
// retried exactly once after a short wait, since provisioning can race the
// first connect of a brand-new account.
func (m *ConnectionManager) Connect(ctx context.Context, platform string) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", fmt.Errorf("connection manager is closed")
	}
	delete(m.errors, platform)
	m.connecting = platform
	m.mu.Unlock()

	path := "/api/auth/oauth/" + platform
	if platform == "twitter" {
		path = "/api/twitter/auth"
	}

	var resp initiationResponse
	err := m.client.Request(ctx, http.MethodPost, path, struct{}{}, &resp)
	if err != nil && isWorkspaceNotReady(err) {
		select {
		case <-time.After(1 * time.Second):
		case <-ctx.Done():
			m.clearConnecting(platform)
			return "", ctx.Err()
		}
		err = m.client.Request(ctx, http.MethodPost, path, struct{}{}, &resp)
	}
	if err != nil {
		m.failConnect(platform, err.Error())
		return "", err
	}

	m.scheduleTimers(platform)
	return resp.RedirectURL, nil
}

func isWorkspaceNotReady(err error) bool {
	berr, ok := AsBackendError(err)
	if !ok || berr.Status != http.StatusInternalServerError {
		return false
	}
	if berr.Code == workspaceRetryCode {
		return true
	}
	return strings.Contains(berr.Message, "initialize workspace")
}

// scheduleTimers arms the warning and hard-timeout timers for one attempt.
// Timer callbacks check liveness before touching state: the manager may have
// been closed while the browser was away at the provider.
func (m *ConnectionManager) scheduleTimers(platform string) {
	timeout, ok := m.timeouts[platform]
	if !ok {
		timeout = 60 * time.Second
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if warnAt := timeout - timeoutWarningLead; warnAt > 0 {
		m.warnTimers[platform] = time.AfterFunc(warnAt, func() {
			m.mu.Lock()
			alive := !m.closed && m.connecting == platform
			m.mu.Unlock()
			if alive && m.OnTimeoutWarning != nil {
				m.OnTimeoutWarning(platform)
			}
		})
	}

	m.failTimers[platform] = time.AfterFunc(timeout, func() {
		m.mu.Lock()
		alive := !m.closed && m.connecting == platform
		if alive {
			m.connecting = ""
			m.errors[platform] = fmt.Sprintf("Connecting to %s timed out. Please try again.", platform)
		}
		m.mu.Unlock()
		if alive && m.OnTimeout != nil {
			m.OnTimeout(platform)
		}
	})
}

func (m *ConnectionManager) stopTimers(platform string) {
	if t, ok := m.warnTimers[platform]; ok {
		t.Stop()
		delete(m.warnTimers, platform)
	}
	if t, ok := m.failTimers[platform]; ok {
		t.Stop()
		delete(m.failTimers, platform)
	}
}

func (m *ConnectionManager) clearConnecting(platform string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connecting == platform {
		m.connecting = ""
	}
	m.stopTimers(platform)
}

func (m *ConnectionManager) failConnect(platform, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connecting == platform {
		m.connecting = ""
	}
	m.errors[platform] = message
	m.stopTimers(platform)
}

// ResolveCallback inspects the query string of a returned OAuth redirect.
// On oauth_error the code is translated and surfaced; on oauth_success the
// reconciler polls status until the credential write is visible. The returned
// StatusMap is nil on the error path.
func (m *ConnectionManager) ResolveCallback(ctx context.Context, query url.Values) (StatusMap, error) {
	if code := query.Get("oauth_error"); code != "" {
		platform := query.Get("platform")
		if platform == "" {
			platform = m.Connecting()
		}
		message := MessageForOAuthError(code)
		m.failConnect(platform, message)
		return nil, fmt.Errorf("%s", message)
	}

	platform := query.Get("oauth_success")
	if platform == "" {
		return nil, nil
	}

	m.clearConnecting(platform)

	status, err := m.reconciler.Reconcile(ctx, platform)
	if err != nil {
		m.mu.Lock()
		m.errors[platform] = genericConnectionError
		m.mu.Unlock()
		return status, err
	}
	return status, nil
}

// Disconnect removes the platform credential. On failure the server's error
// detail is surfaced verbatim; on success the fresh status is returned.
func (m *ConnectionManager) Disconnect(ctx context.Context, platform string) (StatusMap, error) {
	var resp disconnectResponse
	err := m.client.Request(ctx, http.MethodDelete, "/api/credentials/"+platform+"/disconnect", nil, &resp)
	if err != nil {
		detail := err.Error()
		if berr, ok := AsBackendError(err); ok && berr.Message != "" {
			detail = berr.Message
		}
		m.mu.Lock()
		m.errors[platform] = detail
		m.mu.Unlock()
		return nil, err
	}

	return m.client.FetchConnectionStatus(ctx)
}

// Close marks the manager dead so pending timer callbacks become no-ops.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for platform := range m.warnTimers {
		m.warnTimers[platform].Stop()
		delete(m.warnTimers, platform)
	}
	for platform := range m.failTimers {
		m.failTimers[platform].Stop()
		delete(m.failTimers, platform)
	}
}
