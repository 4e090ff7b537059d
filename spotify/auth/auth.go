package auth

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/xeptore/exportify/redact"
	"github.com/xeptore/exportify/spotify/fs"
)

const (
	tokenFileName = "token.json"
	// TokenLifetime is the bearer token's nominal validity window. It is only
	// a local heuristic for warning the user; the API's 401 response is the
	// authoritative expiry signal.
	TokenLifetime = time.Hour
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLoginRequired = errors.New("login required")
)

type Credentials struct {
	Token    string
	IssuedAt time.Time
}

type Auth struct {
	credsDir    string
	credentials atomic.Pointer[Credentials]
}

func New(logger zerolog.Logger, credsDir string) (*Auth, error) {
	content, err := fs.AuthFileFrom(credsDir, tokenFileName).Read()
	if nil != err && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}

	creds := &Credentials{
		Token:    "",
		IssuedAt: time.Time{},
	}
	if content != nil {
		creds = &Credentials{
			Token:    content.AccessToken,
			IssuedAt: time.Unix(content.IssuedAt, 0),
		}
		logger.
			Debug().
			Str("token", redact.String(creds.Token)).
			Time("issued_at", creds.IssuedAt).
			Msg("Stored credentials loaded")
	}

	a := &Auth{
		credsDir:    credsDir,
		credentials: atomic.Pointer[Credentials]{},
	}
	a.credentials.Store(creds)

	return a, nil
}

func (a *Auth) Credentials() *Credentials {
	return a.credentials.Load()
}

// Stale reports whether the stored token is missing or past its nominal
// lifetime. Callers use it to suggest a re-login up front, not to gate
// requests.
func (a *Auth) Stale() bool {
	creds := a.Credentials()
	return creds.Token == "" || time.Since(creds.IssuedAt) >= TokenLifetime
}

func (a *Auth) store(creds *Credentials) error {
	content := fs.AuthFileContent{
		AccessToken: creds.Token,
		IssuedAt:    creds.IssuedAt.Unix(),
	}
	if err := fs.AuthFileFrom(a.credsDir, tokenFileName).Write(content); nil != err {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	a.credentials.Store(creds)

	return nil
}

func (a *Auth) Logout() error {
	if err := fs.AuthFileFrom(a.credsDir, tokenFileName).Remove(); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return ErrLoginRequired
		}

		return fmt.Errorf("failed to remove auth file: %w", err)
	}
	a.credentials.Store(&Credentials{Token: "", IssuedAt: time.Time{}})

	return nil
}
