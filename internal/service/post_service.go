package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/socialdeck/socialdeck/internal/models"
	"github.com/socialdeck/socialdeck/internal/platforms"
	"github.com/socialdeck/socialdeck/internal/repository"
	"github.com/socialdeck/socialdeck/internal/transfer"
)

const (
	PostTypeImage = "image"
	PostTypeVideo = "video"
	PostTypeText  = "text"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	pt repository.PostTargetRepository
	cr repository.CredentialRepository
	ma repository.MediaAssetRepository
	pm repository.PostMediaRepository
	r2 *R2Service
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pt repository.PostTargetRepository,
	cr repository.CredentialRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	r2 *R2Service) PostService {
	return &postService{
		db: db,
		pr: pr,
		pt: pt,
		cr: cr,
		ma: ma,
		pm: pm,
		r2: r2,
	}
}

// CreatePost validates the input, persists the post with its targets and
// media inside one transaction, and returns the delay until the scheduled
// time so the caller can enqueue the publish task.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Caption == "" && len(files) == 0 {
		err := errors.New("post needs a caption or media")
		slog.Info(err.Error())
		return 0, 0, err
	}
	if len(pc.Platforms) == 0 {
		err := errors.New("no platforms selected")
		slog.Info(err.Error())
		return 0, 0, err
	}

	scheduledTime := time.Now()
	if pc.ScheduledAt != "" {
		var err error
		scheduledTime, err = time.Parse("2006-01-02T15:04", pc.ScheduledAt)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
	}

	postType := pc.PostType
	if postType == "" {
		postType = PostTypeText
		if len(files) > 0 {
			postType = PostTypeImage
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:        userID,
		PostType:      postType,
		Caption:       pc.Caption,
		ScheduledTime: scheduledTime,
		Status:        models.PostStatusScheduled,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.saveTargets(ctx, tx, userID, postID, pc.Platforms); err != nil {
		return 0, 0, fmt.Errorf("error processing selected platforms: %w", err)
	}

	if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
		return 0, 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	delay := time.Until(scheduledTime)
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

// saveTargets rejects platforms the user has not connected.
func (s *postService) saveTargets(ctx context.Context, tx *sql.Tx, userID, postID int64, targets []string) error {
	for _, platform := range targets {
		if _, ok := platforms.Parse(platform); !ok {
			return fmt.Errorf("unsupported platform %q", platform)
		}
		_, connected, err := s.cr.GetByUserAndPlatform(ctx, userID, platform)
		if err != nil {
			return fmt.Errorf("error checking %s connection: %w", platform, err)
		}
		if !connected {
			return fmt.Errorf("%s is not connected", platform)
		}

		target := models.PostTarget{
			PostID:   postID,
			Platform: platform,
		}
		if err := s.pt.Create(ctx, tx, &target); err != nil {
			return fmt.Errorf("error saving target %s: %w", platform, err)
		}
	}
	return nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, file.Filename, fileType.MIME.Value, fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, fileName, fileType string, file []byte) (int64, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	key := fmt.Sprintf("uploads/%d/%s", userID, id)
	fileURL, err := s.r2.Upload(ctx, key, file, fileType)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	ma := models.MediaAsset{
		UserID:   userID,
		FileName: fileName,
		FileType: fileType,
		FileSize: int64(len(file)),
		FileURL:  fileURL,
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.GetByUserID(ctx, userID)
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if userID == 0 {
		err := errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	exists, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New("post not found")
	}

	return s.pr.GetByID(ctx, postID)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	exists, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New("post not found")
	}

	if err := s.pm.Remove(ctx, postID); err != nil {
		return err
	}
	return s.pr.Remove(ctx, postID)
}
