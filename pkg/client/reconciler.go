package client

import (
	"context"
	"time"
)

// ConnectionStatus is one platform's entry in the status projection.
type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	AccountID   string     `json:"account_id,omitempty"`
	AccountName string     `json:"account_name,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsExpired   bool       `json:"is_expired,omitempty"`
}

// StatusMap maps platform name to connection status.
type StatusMap map[string]ConnectionStatus

// FetchConnectionStatus reads the current per-platform connection state.
func (c *Client) FetchConnectionStatus(ctx context.Context) (StatusMap, error) {
	var status StatusMap
	if err := c.Request(ctx, "GET", "/api/credentials/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// StatusFetcher abstracts the status read the reconciler polls.
type StatusFetcher func(ctx context.Context) (StatusMap, error)

// Reconciler absorbs the lag between an OAuth redirect completing and the
// credential write becoming visible to reads. It polls the status endpoint a
// bounded number of times instead of trusting the first read.
type Reconciler struct {
	fetch  StatusFetcher
	delays []time.Duration
}

func NewReconciler(fetch StatusFetcher) *Reconciler {
	return &Reconciler{
		fetch: fetch,
		// Waits between attempts. The first fetch is immediate, so four
		// attempts consume exactly these three.
		delays: []time.Duration{
			1500 * time.Millisecond,
			1000 * time.Millisecond,
			2000 * time.Millisecond,
		},
	}
}

// Reconcile polls until platform shows connected or the attempts run out.
// The first fetch is immediate. When the final attempt still reports
// not-connected, its data is accepted as-is: the backend may genuinely have
// failed to persist and endless polling would only hide that.
func (r *Reconciler) Reconcile(ctx context.Context, platform string) (StatusMap, error) {
	attempts := len(r.delays) + 1

	var status StatusMap
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.delays[attempt-1]):
			case <-ctx.Done():
				return status, ctx.Err()
			}
		}

		status, err = r.fetch(ctx)
		if err != nil {
			continue
		}
		if status[platform].Connected {
			return status, nil
		}
	}

	return status, err
}
