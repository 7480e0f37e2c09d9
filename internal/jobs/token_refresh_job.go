package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/socialdeck/socialdeck/internal/models"
	"github.com/socialdeck/socialdeck/internal/repository"
	"github.com/socialdeck/socialdeck/internal/service"
)

// TokenRefreshJob sweeps credentials whose access token expires inside the
// next window and rotates them through the platform adapters.
type TokenRefreshJob struct {
	cr repository.CredentialRepository
	cs service.CredentialService
}

func NewTokenRefreshJob(cr repository.CredentialRepository, cs service.CredentialService) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr: cr,
		cs: cs,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	credentials, err := c.cr.ListExpiringBetween(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, pc := range credentials {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(pc *models.PlatformCredential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if pc.RefreshToken == "" {
				return
			}
			if err := c.cs.Refresh(ctx, pc); err != nil {
				slog.Info("unable to refresh " + pc.Platform + " token")
			}
		}(pc)
	}

	wg.Wait()
}
