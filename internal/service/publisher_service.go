package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/socialdeck/socialdeck/internal/models"
	"github.com/socialdeck/socialdeck/internal/platforms"
	"github.com/socialdeck/socialdeck/internal/repository"
)

// PublisherService fans a post out to its target platforms through the
// adapter registry. Business failures land in posting_records with their
// structured code; infrastructure failures record the error message.
type PublisherService interface {
	PublishPost(ctx context.Context, postID int64) error
}

type publisherService struct {
	registry *platforms.Registry
	cs       CredentialService
	pr       repository.PostRepository
	pt       repository.PostTargetRepository
	pm       repository.PostMediaRepository
	ma       repository.MediaAssetRepository
	rec      repository.PostingRecordRepository
}

func NewPublisherService(
	registry *platforms.Registry,
	cs CredentialService,
	pr repository.PostRepository,
	pt repository.PostTargetRepository,
	pm repository.PostMediaRepository,
	ma repository.MediaAssetRepository,
	rec repository.PostingRecordRepository) PublisherService {
	return &publisherService{
		registry: registry,
		cs:       cs,
		pr:       pr,
		pt:       pt,
		pm:       pm,
		ma:       ma,
		rec:      rec,
	}
}

func (s *publisherService) PublishPost(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errors.New("post not found")
	}

	targets, err := s.pt.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("no platforms selected for publishing")
	}

	mediaURLs, err := s.mediaURLs(ctx, postID)
	if err != nil {
		return err
	}

	content := platforms.Post{
		Caption:   post.Caption,
		MediaURLs: mediaURLs,
		MediaType: post.PostType,
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	allOK := true
	var mu sync.Mutex

	for _, target := range targets {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(target *models.PostTarget) {
			defer wg.Done()
			defer func() { <-semaphore }()

			ok := s.publishOne(ctx, post, target.Platform, content)
			if !ok {
				mu.Lock()
				allOK = false
				mu.Unlock()
			}
		}(target)
	}
	wg.Wait()

	status := models.PostStatusPosted
	if !allOK {
		status = models.PostStatusFailed
	}
	if err := s.pr.UpdatePostStatus(ctx, status, postID); err != nil {
		log.Printf("Error updating status for PostID %d: %v", postID, err)
		return err
	}
	return nil
}

func (s *publisherService) publishOne(ctx context.Context, post *models.Post, platform string, content platforms.Post) bool {
	record := models.PostingRecord{
		UserID:   post.UserID,
		PostID:   post.ID,
		Platform: platform,
	}
	defer func() {
		if _, err := s.rec.Create(ctx, &record); err != nil {
			log.Printf("Error saving posting record for PostID %d: %v", post.ID, err)
		}
	}()

	p, ok := platforms.Parse(platform)
	if !ok {
		record.ErrorCode = "config_missing"
		record.ErrorMessage = "unsupported platform"
		return false
	}
	adapter, ok := s.registry.Get(p)
	if !ok {
		record.ErrorCode = "config_missing"
		record.ErrorMessage = "no adapter configured"
		return false
	}

	creds, err := s.cs.Credentials(ctx, post.UserID, platform)
	if err != nil {
		log.Printf("Error loading %s credentials for PostID %d: %v", platform, post.ID, err)
		record.ErrorCode = "credential_error"
		record.ErrorMessage = err.Error()
		return false
	}

	result, err := adapter.PostContent(ctx, creds, content)
	if err != nil {
		log.Printf("Error posting to %s for PostID %d: %v", platform, post.ID, err)
		record.ErrorCode = "external_api_error"
		record.ErrorMessage = err.Error()
		return false
	}

	record.Success = result.Success
	record.PlatformPostID = result.PostID
	record.ErrorCode = result.ErrorCode
	record.ErrorMessage = result.ErrorMessage
	return result.Success
}

func (s *publisherService) mediaURLs(ctx context.Context, postID int64) ([]string, error) {
	media, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(media))
	for _, pm := range media {
		asset, err := s.ma.GetByID(ctx, pm.AssetID)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			continue
		}
		urls = append(urls, asset.FileURL)
	}
	return urls, nil
}
