package httputil_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/exportify/httputil"
)

func TestIsTokenExpiredResponse(t *testing.T) {
	t.Parallel()

	b := []byte(`{"error":{"status":401,"message":"The access token expired"}}`)
	assert.True(t, httputil.IsTokenExpiredResponse(b))
	assert.False(t, httputil.IsTokenInvalidResponse(b))

	b = []byte(`{"error":{"status":401,"message":"Invalid access token"}}`)
	assert.False(t, httputil.IsTokenExpiredResponse(b))
	assert.True(t, httputil.IsTokenInvalidResponse(b))

	assert.False(t, httputil.IsTokenExpiredResponse([]byte(`{}`)))
	assert.False(t, httputil.IsTokenExpiredResponse([]byte(`not json`)))
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, httputil.RetryAfter(resp))

	resp.Header.Set("Retry-After", "garbage")
	assert.Equal(t, time.Second, httputil.RetryAfter(resp))

	resp.Header.Del("Retry-After")
	assert.Equal(t, time.Second, httputil.RetryAfter(resp))
}
