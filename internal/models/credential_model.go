package models

import (
	"time"
)

const (
	CredentialStatusActive  = "active"
	CredentialStatusRevoked = "revoked"
)

// PlatformCredential stores the encrypted token material for one connected
// account. AccessToken, TokenSecret and RefreshToken hold ciphertext; they
// are never written to the database in the clear.
type PlatformCredential struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Platform        string    `db:"platform" json:"platform"`
	AccountID       string    `db:"account_id" json:"account_id"`
	AccountName     string    `db:"account_name" json:"account_name"`
	AccountUsername string    `db:"account_username" json:"account_username"`
	ProfilePicture  string    `db:"profile_picture_url" json:"profile_picture"`
	AccessToken     string    `db:"access_token" json:"-"`
	TokenSecret     string    `db:"token_secret" json:"-"`
	RefreshToken    string    `db:"refresh_token" json:"-"`
	TokenExpiresAt  time.Time `db:"token_expires_at" json:"token_expires_at"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the access token's lifetime has passed. A zero
// expiry means the token never expires.
func (c *PlatformCredential) IsExpired() bool {
	if c.TokenExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.TokenExpiresAt)
}
