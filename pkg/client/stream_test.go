package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamParsesDataLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"n\":1}\n"))
		w.Write([]byte(": keepalive comment\n"))
		w.Write([]byte("data: {\"n\":2}\n"))
		w.Write([]byte("data: [DONE]\n"))
	}))
	defer srv.Close()

	sm := NewSessionManager(func(ctx context.Context) (string, error) { return "tok", nil })
	c := New(WithBaseURL(srv.URL), WithSessionManager(sm))

	var events []int
	var completed bool
	err := c.Stream(context.Background(), "/api/comments/suggest", map[string]string{"comment": "hi"}, StreamHandlers{
		OnEvent: func(raw json.RawMessage) {
			var ev struct {
				N int `json:"n"`
			}
			require.NoError(t, json.Unmarshal(raw, &ev))
			events = append(events, ev.N)
		},
		OnComplete: func() { completed = true },
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, events)
	assert.True(t, completed)
}

func TestStreamSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))

	var gotErr error
	err := c.Stream(context.Background(), "/api/comments/suggest", map[string]string{}, StreamHandlers{
		OnError: func(err error) { gotErr = err },
	})

	require.Error(t, err)
	assert.Equal(t, err, gotErr)
	berr, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, berr.Status)
	assert.Equal(t, "rate limited", berr.Message)
}
