package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/socialdeck/socialdeck/internal/models"
)

type PostTargetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pt *models.PostTarget) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error)
}

type postTargetRepository struct {
	db *sql.DB
}

func NewPostTargetRepository(db *sql.DB) PostTargetRepository {
	return &postTargetRepository{db: db}
}

func (r *postTargetRepository) Create(ctx context.Context, tx *sql.Tx, pt *models.PostTarget) error {
	query := `INSERT INTO post_targets (post_id, platform) VALUES ($1, $2)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, pt.PostID, pt.Platform)
	} else {
		_, err = r.db.ExecContext(ctx, query, pt.PostID, pt.Platform)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postTargetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error) {
	query := `SELECT post_id, platform, created_at FROM post_targets WHERE post_id = $1`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.PostTarget
	for rows.Next() {
		var pt models.PostTarget
		err := rows.Scan(&pt.PostID, &pt.Platform, &pt.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		targets = append(targets, &pt)
	}
	return targets, nil
}
