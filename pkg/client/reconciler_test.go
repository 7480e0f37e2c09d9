package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastDelays() []time.Duration {
	return []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
}

func TestReconcilerStopsAfterBoundedAttempts(t *testing.T) {
	var fetches int
	r := NewReconciler(func(ctx context.Context) (StatusMap, error) {
		fetches++
		return StatusMap{"instagram": {Connected: false}}, nil
	})
	r.delays = fastDelays()

	status, err := r.Reconcile(context.Background(), "instagram")

	require.NoError(t, err)
	assert.Equal(t, 4, fetches)
	assert.False(t, status["instagram"].Connected)
}

func TestReconcilerExitsEarlyOnConnected(t *testing.T) {
	var fetches int
	r := NewReconciler(func(ctx context.Context) (StatusMap, error) {
		fetches++
		if fetches == 2 {
			return StatusMap{"instagram": {Connected: true, AccountName: "brand"}}, nil
		}
		return StatusMap{"instagram": {Connected: false}}, nil
	})
	r.delays = fastDelays()

	status, err := r.Reconcile(context.Background(), "instagram")

	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
	assert.True(t, status["instagram"].Connected)
	assert.Equal(t, "brand", status["instagram"].AccountName)
}

func TestReconcilerKeepsPollingThroughFetchErrors(t *testing.T) {
	var fetches int
	r := NewReconciler(func(ctx context.Context) (StatusMap, error) {
		fetches++
		if fetches < 3 {
			return nil, errors.New("status endpoint down")
		}
		return StatusMap{"tiktok": {Connected: true}}, nil
	})
	r.delays = fastDelays()

	status, err := r.Reconcile(context.Background(), "tiktok")

	require.NoError(t, err)
	assert.Equal(t, 3, fetches)
	assert.True(t, status["tiktok"].Connected)
}

func TestReconcilerRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var fetches int
	r := NewReconciler(func(ctx context.Context) (StatusMap, error) {
		fetches++
		cancel()
		return StatusMap{"youtube": {Connected: false}}, nil
	})

	_, err := r.Reconcile(ctx, "youtube")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fetches)
}

func TestReconcilerDefaultDelaysMatchAttemptBudget(t *testing.T) {
	r := NewReconciler(nil)

	// First fetch is immediate; every configured wait precedes one retry.
	assert.Equal(t, []time.Duration{
		1500 * time.Millisecond,
		1000 * time.Millisecond,
		2000 * time.Millisecond,
	}, r.delays)
}
