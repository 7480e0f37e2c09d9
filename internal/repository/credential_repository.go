package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/socialdeck/socialdeck/internal/models"
)

type CredentialRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, pc *models.PlatformCredential) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PlatformCredential, error)
	GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.PlatformCredential, bool, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error)
	ListExpiringBetween(ctx context.Context, initialTime, finalTime time.Time) ([]*models.PlatformCredential, error)
	SetToken(ctx context.Context, id int64, accessToken, tokenSecret, refreshToken string, expiresAt time.Time) error
	Remove(ctx context.Context, userID int64, platform string) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

// Upsert keeps one credential per (user, platform). Reconnecting a platform
// replaces the stored tokens instead of stacking rows.
func (r *credentialRepository) Upsert(ctx context.Context, tx *sql.Tx, pc *models.PlatformCredential) (int64, error) {
	var err error
	var id int64

	var query = `
		INSERT INTO platform_credentials(
			user_id,
			platform,
			account_id,
			account_name,
			account_username,
			profile_picture_url,
			access_token,
			token_secret,
			refresh_token,
			token_expires_at,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			account_username = EXCLUDED.account_username,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			token_secret = EXCLUDED.token_secret,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id
	`

	if tx != nil {
		err = tx.QueryRowContext(ctx, query,
			pc.UserID, pc.Platform, pc.AccountID, pc.AccountName, pc.AccountUsername,
			pc.ProfilePicture, pc.AccessToken, pc.TokenSecret, pc.RefreshToken,
			pc.TokenExpiresAt, models.CredentialStatusActive,
		).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query,
			pc.UserID, pc.Platform, pc.AccountID, pc.AccountName, pc.AccountUsername,
			pc.ProfilePicture, pc.AccessToken, pc.TokenSecret, pc.RefreshToken,
			pc.TokenExpiresAt, models.CredentialStatusActive,
		).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *credentialRepository) GetByID(ctx context.Context, id int64) (*models.PlatformCredential, error) {
	query := `SELECT id, user_id, platform, account_id, account_name, account_username,
		profile_picture_url, access_token, token_secret, refresh_token, token_expires_at,
		status, created_at, updated_at
		FROM platform_credentials WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var pc models.PlatformCredential
	err := row.Scan(&pc.ID, &pc.UserID, &pc.Platform, &pc.AccountID, &pc.AccountName,
		&pc.AccountUsername, &pc.ProfilePicture, &pc.AccessToken, &pc.TokenSecret,
		&pc.RefreshToken, &pc.TokenExpiresAt, &pc.Status, &pc.CreatedAt, &pc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &pc, nil
}

func (r *credentialRepository) GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.PlatformCredential, bool, error) {
	query := `SELECT id, user_id, platform, account_id, account_name, account_username,
		profile_picture_url, access_token, token_secret, refresh_token, token_expires_at,
		status, created_at, updated_at
		FROM platform_credentials WHERE user_id = $1 AND platform = $2`
	row := r.db.QueryRowContext(ctx, query, userID, platform)

	var pc models.PlatformCredential
	err := row.Scan(&pc.ID, &pc.UserID, &pc.Platform, &pc.AccountID, &pc.AccountName,
		&pc.AccountUsername, &pc.ProfilePicture, &pc.AccessToken, &pc.TokenSecret,
		&pc.RefreshToken, &pc.TokenExpiresAt, &pc.Status, &pc.CreatedAt, &pc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}

	return &pc, true, nil
}

func (r *credentialRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error) {
	query := `SELECT id, platform, account_id, account_name, account_username,
		profile_picture_url, token_expires_at, status, created_at
		FROM platform_credentials WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var credentials []*models.PlatformCredential
	for rows.Next() {
		var pc models.PlatformCredential
		err := rows.Scan(&pc.ID, &pc.Platform, &pc.AccountID, &pc.AccountName,
			&pc.AccountUsername, &pc.ProfilePicture, &pc.TokenExpiresAt, &pc.Status, &pc.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		credentials = append(credentials, &pc)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return credentials, nil
}

// ListExpiringBetween feeds the refresh job: credentials whose expiry falls
// inside the window, plus anything already past it.
func (r *credentialRepository) ListExpiringBetween(ctx context.Context, initialTime, finalTime time.Time) ([]*models.PlatformCredential, error) {
	query := `SELECT id, user_id, platform, access_token, token_secret, refresh_token, token_expires_at
		FROM platform_credentials
		WHERE status = $1
		AND token_expires_at IS NOT NULL
		AND ((token_expires_at BETWEEN $2 AND $3) OR (token_expires_at < $2))`
	rows, err := r.db.QueryContext(ctx, query, models.CredentialStatusActive, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var credentials []*models.PlatformCredential
	for rows.Next() {
		var pc models.PlatformCredential
		err := rows.Scan(&pc.ID, &pc.UserID, &pc.Platform, &pc.AccessToken, &pc.TokenSecret,
			&pc.RefreshToken, &pc.TokenExpiresAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		credentials = append(credentials, &pc)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return credentials, nil
}

func (r *credentialRepository) SetToken(ctx context.Context, id int64, accessToken, tokenSecret, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE platform_credentials
		SET access_token = $1,
			token_secret = $2,
			refresh_token = $3,
			token_expires_at = $4,
			updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, accessToken, tokenSecret, refreshToken, expiresAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *credentialRepository) Remove(ctx context.Context, userID int64, platform string) error {
	query := `DELETE FROM platform_credentials WHERE user_id = $1 AND platform = $2`
	_, err := r.db.ExecContext(ctx, query, userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
