package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/xeptore/exportify/config"
	"github.com/xeptore/exportify/httputil"
	"github.com/xeptore/exportify/ratelimit"
	"github.com/xeptore/exportify/spotify/auth"
)

// Per-endpoint item ceilings the API accepts in a single call.
const (
	playlistListPageSize   = 50
	savedTracksPageSize    = 50
	playlistTracksPageSize = 100
	artistsChunkSize       = 50
	albumsChunkSize        = 20
	featuresChunkSize      = 100
)

// ErrAuthExpired signals the bearer token was rejected. It is terminal for
// the whole in-flight export; the credential must be reacquired via login.
var ErrAuthExpired = errors.New("auth token expired")

// RateLimitedError carries the server's advertised retry delay of a 429
// response. The fetch retry policy re-issues the identical request after it.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "rate limited, retry after " + e.RetryAfter.String()
}

// StatusError is any non-auth, non-rate-limit failure status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected response status code " + strconv.Itoa(e.Code)
}

type Client struct {
	auth    *auth.Auth
	conf    config.Spotify
	limiter *rate.Limiter
}

func NewClient(a *auth.Auth, conf config.Spotify) *Client {
	return &Client{
		auth:    a,
		conf:    conf,
		limiter: ratelimit.NewLimiter(),
	}
}

// Fetch suspends for delay, then issues a single bearer-authenticated GET and
// classifies the response. The delay is the caller's pre-emptive pacing slot
// within a request volley, not a reactive throttle. No state is retained
// between calls.
func (c *Client) Fetch(ctx context.Context, logger zerolog.Logger, reqURL string, delay time.Duration) (b []byte, err error) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := c.limiter.Wait(ctx); nil != err {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if nil != err {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+c.auth.Credentials().Token)
	req.Header.Add("Accept", "application/json")

	resp, err := c.send(ctx, req)
	if nil != err {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close response body: %v", closeErr))
		}
	}()

	switch code := resp.StatusCode; code {
	case http.StatusOK:
	case http.StatusUnauthorized:
		respBytes, err := httputil.ReadResponseBody(resp)
		if nil != err {
			return nil, fmt.Errorf("failed to read 401 response body: %w", err)
		}

		if !httputil.IsTokenExpiredResponse(respBytes) && !httputil.IsTokenInvalidResponse(respBytes) {
			logger.Warn().Bytes("response_body", respBytes).Msg("Unrecognized 401 response shape")
		}

		return nil, ErrAuthExpired
	case http.StatusTooManyRequests:
		return nil, &RateLimitedError{RetryAfter: httputil.RetryAfter(resp)}
	default:
		respBytes, err := httputil.ReadResponseBody(resp)
		if nil != err {
			return nil, fmt.Errorf("failed to read unexpected response body: %w", err)
		}

		logger.Error().Int("status_code", code).Bytes("response_body", respBytes).Msg("Unexpected response status code")

		return nil, &StatusError{Code: code}
	}

	respBytes, err := httputil.ReadResponseBody(resp)
	if nil != err {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return respBytes, nil
}

// send retries transport-level failures, where no HTTP response ever arrived,
// with exponential backoff. Protocol-level failures are the caller's business.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	client := http.Client{ //nolint:exhaustruct
		Timeout: time.Duration(c.conf.Timeouts.Request) * time.Second,
	}

	var resp *http.Response
	op := func() error {
		r, err := client.Do(req)
		if nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return backoff.Permanent(ctxErr)
			}

			return err
		}
		resp = r

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(time.Second),
				backoff.WithMaxInterval(10*time.Second),
			),
			uint64(c.conf.Retry.MaxSendRetries),
		),
		ctx,
	)
	if err := backoff.Retry(op, policy); nil != err {
		return nil, err
	}

	return resp, nil
}

// FetchJSON wraps Fetch with the rate-limit retry policy and decodes the
// payload into v. A rate-limited request is re-issued, identical URL and all,
// after the server's advertised delay, up to the configured attempt cap. The
// caller's stagger delay applies to the first attempt only.
func (c *Client) FetchJSON(ctx context.Context, logger zerolog.Logger, reqURL string, delay time.Duration, v any) error {
	var retryAfter time.Duration
	policy := retry.WithMaxRetries(
		uint64(c.conf.Retry.MaxAttempts),
		retry.BackoffFunc(func() (time.Duration, bool) { return retryAfter, false }),
	)

	var body []byte
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		b, err := c.Fetch(ctx, logger, reqURL, delay)
		if nil != err {
			var rateLimited *RateLimitedError
			if errors.As(err, &rateLimited) {
				retryAfter = rateLimited.RetryAfter
				delay = 0
				logger.
					Warn().
					Str("url", reqURL).
					Dur("retry_after", rateLimited.RetryAfter).
					Msg("Rate limited. Will re-issue the request after the advertised delay")

				return retry.RetryableError(err)
			}

			return err
		}
		body = b

		return nil
	})
	if nil != err {
		return err
	}

	if err := json.Unmarshal(body, v); nil != err {
		return fmt.Errorf("failed to decode response body: %v", err)
	}

	return nil
}
