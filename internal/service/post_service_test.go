package service

import (
	"context"
	"testing"

	"github.com/socialdeck/socialdeck/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The validation paths below all reject before the transaction opens, so a
// nil db is safe.
func newValidationService() PostService {
	return NewPostService(nil, &fakePostRepo{}, &fakeTargetRepo{}, &fakeCredentialRepo{},
		&fakeMediaAssetRepo{}, &fakePostMediaRepo{}, nil)
}

func TestCreatePostRequiresCaptionOrMedia(t *testing.T) {
	s := newValidationService()

	_, _, err := s.CreatePost(context.Background(), 1, &transfer.PostCreation{
		Platforms: []string{"linkedin"},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caption or media")
}

func TestCreatePostRequiresPlatforms(t *testing.T) {
	s := newValidationService()

	_, _, err := s.CreatePost(context.Background(), 1, &transfer.PostCreation{
		Caption: "hello",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no platforms")
}

func TestCreatePostRejectsBadScheduleFormat(t *testing.T) {
	s := newValidationService()

	_, _, err := s.CreatePost(context.Background(), 1, &transfer.PostCreation{
		Caption:     "hello",
		Platforms:   []string{"linkedin"},
		ScheduledAt: "tomorrow at noon",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduled time")
}

func TestCreatePostRejectsNilInput(t *testing.T) {
	s := newValidationService()

	_, _, err := s.CreatePost(context.Background(), 1, nil, nil)
	require.Error(t, err)
}

func TestPostInfoRequiresValidIDs(t *testing.T) {
	s := newValidationService()

	_, err := s.PostInfo(context.Background(), 0, 1)
	require.Error(t, err)

	_, err = s.PostInfo(context.Background(), 5, 0)
	require.Error(t, err)
}
