package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/exportify/config"
	"github.com/xeptore/exportify/spotify/auth"
	"github.com/xeptore/exportify/spotify/fs"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	dir := t.TempDir()
	err := fs.AuthFileFrom(dir, "token.json").Write(fs.AuthFileContent{
		AccessToken: "test-token",
		IssuedAt:    time.Now().Unix(),
	})
	require.NoError(t, err)

	a, err := auth.New(zerolog.Nop(), dir)
	require.NoError(t, err)

	//nolint:exhaustruct
	conf := config.Spotify{
		BaseURL:  baseURL,
		Timeouts: config.SpotifyTimeouts{Request: 10, TokenExchange: 5},
		Retry:    config.SpotifyRetry{MaxAttempts: 2, MaxSendRetries: 1},
	}

	return NewClient(a, conf)
}

func TestFetchPassesBearerToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	b, err := c.Fetch(t.Context(), zerolog.Nop(), srv.URL+"/me", 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(b))
}

func TestFetchClassifiesExpiredToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Fetch(t.Context(), zerolog.Nop(), srv.URL+"/me", 0)
	require.ErrorIs(t, err, ErrAuthExpired)
}

func TestFetchClassifiesRateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Fetch(t.Context(), zerolog.Nop(), srv.URL+"/me", 0)

	var rateLimited *RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 3*time.Second, rateLimited.RetryAfter)
}

func TestFetchClassifiesUnexpectedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream unavailable`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Fetch(t.Context(), zerolog.Nop(), srv.URL+"/me", 0)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestFetchHonorsStaggerDelay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	start := time.Now()
	_, err := c.Fetch(t.Context(), zerolog.Nop(), srv.URL+"/me", 200*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestFetchDelayRespectsCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, zerolog.Nop(), srv.URL+"/me", 10*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchJSONReissuesRateLimitedRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"u1"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var respBody struct {
		ID string `json:"id"`
	}
	start := time.Now()
	err := c.FetchJSON(t.Context(), zerolog.Nop(), srv.URL+"/me", 0, &respBody)
	require.NoError(t, err)
	assert.Equal(t, "u1", respBody.ID)
	assert.EqualValues(t, 2, calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), time.Second, "re-issue must wait out the advertised delay")
}

func TestFetchJSONGivesUpAfterAttemptCap(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var respBody struct{}
	err := c.FetchJSON(t.Context(), zerolog.Nop(), srv.URL+"/me", 0, &respBody)

	var rateLimited *RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.EqualValues(t, 3, calls.Load(), "initial attempt plus the configured retries")
}

func TestFetchJSONDoesNotRetryOtherFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var respBody struct{}
	err := c.FetchJSON(t.Context(), zerolog.Nop(), srv.URL+"/me", 0, &respBody)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchJSONDecodeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var respBody struct{}
	err := c.FetchJSON(t.Context(), zerolog.Nop(), srv.URL+"/me", 0, &respBody)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthExpired)
}
