package transfer

import "time"

// ConnectionStatus is one platform's entry in the credentials status
// projection served at /api/credentials/status.
type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	AccountID   string     `json:"account_id,omitempty"`
	AccountName string     `json:"account_name,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsExpired   bool       `json:"is_expired,omitempty"`
}
