package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/dashboard-backend/internal/auth"
	"github.com/futig/dashboard-backend/internal/config"
	"github.com/futig/dashboard-backend/internal/pkg/retry"
	pkghttp "github.com/futig/dashboard-backend/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnector(t *testing.T, serverURL string) (*Connector, *auth.Store) {
	t.Helper()

	tokens := auth.NewStore(filepath.Join(t.TempDir(), "token.json"))

	cfg := config.UpstreamConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout:        5 * time.Second,
			ConnTimeout:           time.Second,
			KeepAlive:             time.Second,
			IdleConnTimeout:       time.Second,
			ResponseHeaderTimeout: time.Second,
			Url:                   serverURL,
		},
		Retry: retry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 4 * time.Millisecond},
	}

	return NewConnector(cfg, tokens, zap.NewNop()), tokens
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"unique_users": 7, "unique_sessions": 11, "date": "2026-08-20"}`))
	}))
	defer srv.Close()

	conn, _ := newTestConnector(t, srv.URL)

	out, err := conn.UsersToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, out.UniqueUsers)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	conn, _ := newTestConnector(t, srv.URL)

	_, err := conn.UsersToday(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetAuthErrorShortCircuitsAndClearsToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	conn, tokens := newTestConnector(t, srv.URL)
	require.NoError(t, tokens.SetToken("stale", time.Now().Add(time.Hour)))

	_, err := conn.UsersToday(context.Background())
	require.Error(t, err)
	assert.True(t, pkghttp.IsAuthError(err))

	// Exactly one request: auth failures are never retried.
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, tokens.Authenticated())
}

func TestPostIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	conn, _ := newTestConnector(t, srv.URL)

	err := conn.UpdateNotes(context.Background(), "u1", "note")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"unique_users": 1, "unique_sessions": 1, "date": "2026-08-20"}`))
	}))
	defer srv.Close()

	conn, tokens := newTestConnector(t, srv.URL)
	require.NoError(t, tokens.SetToken("tok-abc", time.Now().Add(time.Hour)))

	_, err := conn.UsersToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-abc", gotAuth.Load())
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		w.Write([]byte(`{"access_token": "fresh", "token_type": "bearer", "expires_in": 3600}`))
	}))
	defer srv.Close()

	conn, tokens := newTestConnector(t, srv.URL)

	resp, err := conn.Login(context.Background(), "a@b.c", "secret", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "fresh", resp.AccessToken)

	token, ok := tokens.Token()
	assert.True(t, ok)
	assert.Equal(t, "fresh", token)
}

func TestWorkflowStatusesNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/clinical-sessions/sess-1/all-status", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	conn, _ := newTestConnector(t, srv.URL)

	_, err := conn.WorkflowStatuses(context.Background(), "sess-1")
	require.Error(t, err)

	// The populate polling loop owns transient-error handling, so this
	// endpoint makes a single attempt.
	assert.Equal(t, int32(1), calls.Load())
}
