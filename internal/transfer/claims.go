package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// StateClaims is the signed anti-CSRF state carried through an OAuth
// redirect: who started the connect attempt, for which platform, and a
// one-time nonce.
type StateClaims struct {
	UserID   string `json:"user_id"`
	Platform string `json:"platform"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

type PostCreation struct {
	Caption     string   `json:"caption"`
	PostType    string   `json:"post_type"`
	Platforms   []string `json:"platforms"`
	ScheduledAt string   `json:"scheduled_at"`
}
