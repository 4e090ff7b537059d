package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Per-volley stagger steps. Each concurrent request of a stage is delayed by
// its index times the stage's step so the whole volley arrives already spaced
// under the API rate limit instead of firing simultaneously.
const (
	PlaylistPageStagger = 100 * time.Millisecond
	TrackPageStagger    = 100 * time.Millisecond
	ArtistChunkStagger  = 100 * time.Millisecond
	AlbumChunkStagger   = 120 * time.Millisecond
	FeatureChunkStagger = 100 * time.Millisecond
)

// Stagger returns the pre-request delay for the i-th request of a volley.
func Stagger(i int, step time.Duration) time.Duration {
	return time.Duration(i) * step
}

// NewLimiter is the client-wide token bucket every outgoing request passes
// through, a second line of defense under the per-volley staggering.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Millisecond*100), 5)
}
