package client

import (
	"context"
	"sync"
	"time"
)

// RestoreFunc loads the persisted session token. An empty token with a nil
// error means no session exists, which is not a failure: requests simply go
// out unauthenticated.
type RestoreFunc func(ctx context.Context) (string, error)

const (
	restoreAttempts = 5
	restoreBaseWait = 100 * time.Millisecond
)

// SessionManager owns the bearer token attached to backend requests. The
// first Token call blocks on session restoration so that requests issued
// during startup don't fail with spurious 401s; concurrent callers share a
// single restore attempt.
type SessionManager struct {
	restore RestoreFunc

	mu          sync.Mutex
	initialized bool
	token       string
	inflight    chan struct{}
}

func NewSessionManager(restore RestoreFunc) *SessionManager {
	return &SessionManager{restore: restore}
}

// Token resolves the current bearer token, bootstrapping the session on
// first use. It never fails because a session is absent; it only fails when
// ctx is cancelled while waiting.
func (m *SessionManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.initialized {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}

	if m.inflight != nil {
		done := m.inflight
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		m.mu.Lock()
		token := m.token
		m.mu.Unlock()
		return token, nil
	}

	done := make(chan struct{})
	m.inflight = done
	m.mu.Unlock()

	token := m.bootstrap(ctx)

	m.mu.Lock()
	m.token = token
	m.initialized = true
	m.inflight = nil
	m.mu.Unlock()
	close(done)

	return token, nil
}

// bootstrap retries restoration with a linearly growing wait. Exhausting the
// attempts leaves the session anonymous rather than failing the caller.
func (m *SessionManager) bootstrap(ctx context.Context) string {
	if m.restore == nil {
		return ""
	}

	for attempt := 1; attempt <= restoreAttempts; attempt++ {
		token, err := m.restore(ctx)
		if err == nil {
			return token
		}

		if attempt == restoreAttempts {
			break
		}

		wait := time.Duration(attempt) * restoreBaseWait
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ""
		}
	}

	return ""
}

// SetToken installs a token directly, e.g. right after login, and marks the
// session initialized so no restore is attempted.
func (m *SessionManager) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.initialized = true
}

// Reset clears the cached session. Called on logout; the next Token call
// bootstraps again.
func (m *SessionManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.initialized = false
}
