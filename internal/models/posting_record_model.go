package models

import "time"

// PostingRecord keeps one row per delivery attempt, successful or not, so a
// failed platform publish stays auditable after the post row moves on.
type PostingRecord struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	CredentialID   int64     `db:"credential_id" json:"credential_id"`
	Platform       string    `db:"platform" json:"platform"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	Success        bool      `db:"success" json:"success"`
	ErrorCode      string    `db:"error_code" json:"error_code"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
