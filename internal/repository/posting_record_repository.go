package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/socialdeck/socialdeck/internal/models"
)

type PostingRecordRepository interface {
	Create(ctx context.Context, pr *models.PostingRecord) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.PostingRecord, error)
}

type postingRecordRepository struct {
	db *sql.DB
}

func NewPostingRecordRepository(db *sql.DB) PostingRecordRepository {
	return &postingRecordRepository{db: db}
}

func (r *postingRecordRepository) Create(ctx context.Context, pr *models.PostingRecord) (int64, error) {
	query := `
		INSERT INTO posting_records (user_id, post_id, credential_id, platform, platform_post_id, success, error_code, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, pr.UserID, pr.PostID, pr.CredentialID,
		pr.Platform, pr.PlatformPostID, pr.Success, pr.ErrorCode, pr.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *postingRecordRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.PostingRecord, error) {
	query := `SELECT id, user_id, post_id, credential_id, platform, platform_post_id, success, error_code, error_message, created_at
		FROM posting_records WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []*models.PostingRecord
	for rows.Next() {
		var pr models.PostingRecord
		err := rows.Scan(&pr.ID, &pr.UserID, &pr.PostID, &pr.CredentialID, &pr.Platform,
			&pr.PlatformPostID, &pr.Success, &pr.ErrorCode, &pr.ErrorMessage, &pr.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		records = append(records, &pr)
	}
	return records, nil
}
