package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

func ReadResponseBody(resp *http.Response) ([]byte, error) {
	respBody, err := io.ReadAll(resp.Body)
	if nil != err {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("unexpected empty response body")
		}

		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	return respBody, nil
}

// IsTokenExpiredResponse reports whether a 401 response body is the API's
// expired-access-token shape.
func IsTokenExpiredResponse(b []byte) bool {
	return gjson.GetBytes(b, "error.status").Int() == http.StatusUnauthorized &&
		gjson.GetBytes(b, "error.message").String() == "The access token expired"
}

// IsTokenInvalidResponse reports whether a 401 response body is the API's
// invalid-access-token shape.
func IsTokenInvalidResponse(b []byte) bool {
	return gjson.GetBytes(b, "error.status").Int() == http.StatusUnauthorized &&
		gjson.GetBytes(b, "error.message").String() == "Invalid access token"
}

// RetryAfter extracts the advertised retry delay of a 429 response. The header
// is specified to carry whole seconds. A missing or malformed header falls
// back to one second so the caller still backs off instead of hammering.
func RetryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if nil != err || secs < 0 {
		return time.Second
	}

	return time.Duration(secs) * time.Second
}
