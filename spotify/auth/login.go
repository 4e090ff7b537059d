package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/xeptore/exportify/config"
	"github.com/xeptore/exportify/httputil"
)

const scopes = "playlist-read-private playlist-read-collaborative user-library-read"

// Login walks the authorization-code-with-PKCE flow: it prints the authorize
// URL (and a terminal QR code of it), captures the authorization code on a
// local redirect listener, exchanges it for a bearer token, and persists the
// credentials. The secret verifier never leaves the process; only its SHA-256
// challenge is sent in the authorize request.
func (a *Auth) Login(ctx context.Context, logger zerolog.Logger, conf config.Spotify) (err error) {
	stdout := os.Stdout
	if !isatty.IsTerminal(stdout.Fd()) {
		return syscall.ENOTTY
	}

	verifier, err := newCodeVerifier()
	if nil != err {
		return fmt.Errorf("failed to generate code verifier: %v", err)
	}
	challenge := sha256.Sum256([]byte(verifier))

	redirectURI := fmt.Sprintf("http://localhost:%d/callback", conf.RedirectPort)

	authorizeParams := make(url.Values, 6)
	authorizeParams.Add("client_id", conf.ClientID)
	authorizeParams.Add("redirect_uri", redirectURI)
	authorizeParams.Add("scope", scopes)
	authorizeParams.Add("response_type", "code")
	authorizeParams.Add("code_challenge_method", "S256")
	authorizeParams.Add("code_challenge", base64.RawURLEncoding.EncodeToString(challenge[:]))
	authorizeURL := conf.AccountsURL + "/authorize?" + authorizeParams.Encode()

	code, err := a.waitForCode(ctx, logger, stdout, authorizeURL, conf.RedirectPort)
	if nil != err {
		return fmt.Errorf("failed to obtain authorization code: %w", err)
	}
	logger.Debug().Msg("Authorization code received")

	creds, err := a.exchangeCode(ctx, conf, code, verifier, redirectURI)
	if nil != err {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := a.store(creds); nil != err {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	return nil
}

func newCodeVerifier() (string, error) {
	const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	var raw [64]byte
	if _, err := rand.Read(raw[:]); nil != err {
		return "", fmt.Errorf("failed to read random bytes: %v", err)
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for _, b := range raw {
		sb.WriteByte(alphanumeric[int(b)%len(alphanumeric)])
	}

	return sb.String(), nil
}

func (a *Auth) waitForCode(
	ctx context.Context,
	logger zerolog.Logger,
	stdout *os.File,
	authorizeURL string,
	port int,
) (string, error) {
	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(port))
	if nil != err {
		logger.Warn().Err(err).Int("port", port).Msg("Cannot listen on redirect port. Falling back to manual paste")
		return askRedirectURL(stdout, authorizeURL)
	}

	codes := make(chan string, 1)
	srv := &http.Server{ //nolint:exhaustruct
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if r.URL.Path != "/callback" || code == "" {
				http.NotFound(w, r)
				return
			}

			fmt.Fprint(w, "Login completed. You can now close this window.")
			select {
			case codes <- code:
			default:
			}
		}),
	}
	go func() {
		if serveErr := srv.Serve(listener); nil != serveErr && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error().Err(serveErr).Msg("Redirect listener failed")
		}
	}()
	defer func() {
		if closeErr := srv.Close(); nil != closeErr {
			logger.Error().Err(closeErr).Msg("Failed to close redirect listener")
		}
	}()

	qr, err := qrcode.New(authorizeURL, qrcode.Medium)
	if nil != err {
		return "", fmt.Errorf("failed to create qr code: %v", err)
	}

	const noInverseColor = false
	code := qr.ToSmallString(noInverseColor)
	lines := strings.Count(code, "\n")

	fmt.Fprintf(stdout, "Open the following page in your browser to log in:\n\n%s\n\n", authorizeURL)
	fmt.Fprint(stdout, code)

	select {
	case c := <-codes:
		// Clear the QR code from the console
		var out strings.Builder
		out.WriteString(text.CursorUp.Sprintn(lines))
		for range lines {
			out.WriteString(text.EraseLine.Sprint())
			out.WriteString(text.CursorDown.Sprint())
		}
		out.WriteString(text.CursorUp.Sprintn(lines))
		fmt.Fprint(stdout, out.String())

		return c, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// askRedirectURL is the no-listener fallback: the user completes the flow in
// a browser and pastes the address it was redirected to.
func askRedirectURL(stdout *os.File, authorizeURL string) (string, error) {
	fmt.Fprintf(stdout, "Open the following page in your browser to log in:\n\n%s\n\n", authorizeURL)

	var pasted string
	prompt := &survey.Input{ //nolint:exhaustruct
		Message: "Paste the URL you were redirected to:",
	}
	askOpts := []survey.AskOpt{
		survey.WithValidator(survey.Required),
		survey.WithStdio(os.Stdin, stdout, stdout),
		survey.WithShowCursor(true),
	}
	if err := survey.AskOne(prompt, &pasted, askOpts...); nil != err {
		return "", fmt.Errorf("failed to ask for redirect URL: %v", err)
	}

	u, err := url.Parse(strings.TrimSpace(pasted))
	if nil != err {
		return "", fmt.Errorf("failed to parse pasted redirect URL: %v", err)
	}

	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("pasted redirect URL carries no authorization code")
	}

	return code, nil
}

func (a *Auth) exchangeCode(
	ctx context.Context,
	conf config.Spotify,
	code string,
	verifier string,
	redirectURI string,
) (creds *Credentials, err error) {
	form := make(url.Values, 5)
	form.Add("client_id", conf.ClientID)
	form.Add("grant_type", "authorization_code")
	form.Add("code", code)
	form.Add("redirect_uri", redirectURI)
	form.Add("code_verifier", verifier)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		conf.AccountsURL+"/api/token",
		strings.NewReader(form.Encode()),
	)
	if nil != err {
		return nil, fmt.Errorf("failed to create token exchange request: %w", err)
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	client := http.Client{ //nolint:exhaustruct
		Timeout: time.Duration(conf.Timeouts.TokenExchange) * time.Second,
	}
	resp, err := client.Do(req)
	if nil != err {
		return nil, fmt.Errorf("failed to send token exchange request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close token exchange response body: %v", closeErr))
		}
	}()

	respBytes, err := httputil.ReadResponseBody(resp)
	if nil != err {
		return nil, fmt.Errorf("failed to read token exchange response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"%w: token exchange was rejected with code %d and body: %s",
			ErrUnauthorized,
			resp.StatusCode,
			string(respBytes),
		)
	}

	var respBody struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		return nil, fmt.Errorf("failed to decode token exchange response body: %v", err)
	}
	if respBody.AccessToken == "" {
		return nil, errors.New("token exchange response carries no access token")
	}

	return &Credentials{Token: respBody.AccessToken, IssuedAt: time.Now()}, nil
}
