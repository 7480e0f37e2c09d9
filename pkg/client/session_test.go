package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentCallersShareOneBootstrap(t *testing.T) {
	var restores int32
	sm := NewSessionManager(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&restores, 1)
		time.Sleep(20 * time.Millisecond)
		return "tok", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := sm.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok", token)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&restores))
}

func TestBootstrapRetriesWithBackoff(t *testing.T) {
	var restores int32
	sm := NewSessionManager(func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&restores, 1) < 3 {
			return "", errors.New("session store not ready")
		}
		return "tok", nil
	})

	token, err := sm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, int32(3), atomic.LoadInt32(&restores))
}

func TestMissingSessionIsNotAnError(t *testing.T) {
	var restores int32
	sm := NewSessionManager(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&restores, 1)
		return "", errors.New("no session")
	})

	token, err := sm.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, int32(restoreAttempts), atomic.LoadInt32(&restores))

	// Result is cached: a second call does not bootstrap again.
	_, err = sm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(restoreAttempts), atomic.LoadInt32(&restores))
}

func TestResetClearsCachedSession(t *testing.T) {
	var restores int32
	sm := NewSessionManager(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&restores, 1)
		return "tok", nil
	})

	_, err := sm.Token(context.Background())
	require.NoError(t, err)
	sm.Reset()

	token, err := sm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&restores))
}

func TestSetTokenSkipsBootstrap(t *testing.T) {
	var restores int32
	sm := NewSessionManager(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&restores, 1)
		return "restored", nil
	})

	sm.SetToken("login-token")
	token, err := sm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
	assert.Equal(t, int32(0), atomic.LoadInt32(&restores))
}
