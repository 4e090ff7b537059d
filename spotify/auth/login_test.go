package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/exportify/config"
)

func exchangeConf(accountsURL string) config.Spotify {
	//nolint:exhaustruct
	return config.Spotify{
		ClientID:    "test-client-id",
		AccountsURL: accountsURL,
		Timeouts:    config.SpotifyTimeouts{Request: 10, TokenExchange: 5},
	}
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		assert.Equal(t, "http://localhost:8080/callback", r.PostForm.Get("redirect_uri"))
		_, _ = w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	a, err := New(zerolog.Nop(), t.TempDir())
	require.NoError(t, err)

	creds, err := a.exchangeCode(
		t.Context(),
		exchangeConf(srv.URL),
		"the-code",
		"the-verifier",
		"http://localhost:8080/callback",
	)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", creds.Token)
	assert.False(t, creds.IssuedAt.IsZero())
}

func TestExchangeCodeRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
	}))
	defer srv.Close()

	a, err := New(zerolog.Nop(), t.TempDir())
	require.NoError(t, err)

	_, err = a.exchangeCode(
		t.Context(),
		exchangeConf(srv.URL),
		"stale-code",
		"the-verifier",
		"http://localhost:8080/callback",
	)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorContains(t, err, "invalid_grant")
}

func TestExchangeCodeEmptyToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	a, err := New(zerolog.Nop(), t.TempDir())
	require.NoError(t, err)

	_, err = a.exchangeCode(
		t.Context(),
		exchangeConf(srv.URL),
		"the-code",
		"the-verifier",
		"http://localhost:8080/callback",
	)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}
