package ratelimit_test

import (
	"testing"
	"time"

	"github.com/xeptore/exportify/ratelimit"
)

func TestStagger(t *testing.T) {
	t.Parallel()

	if d := ratelimit.Stagger(0, ratelimit.TrackPageStagger); d != 0 {
		t.Errorf("expected zero delay for first request, got %s", d)
	}

	for i := 1; i < 20; i++ {
		d := ratelimit.Stagger(i, ratelimit.AlbumChunkStagger)
		if expected := time.Duration(i) * 120 * time.Millisecond; d != expected {
			t.Errorf("expected %s, got %s", expected, d)
		}
	}
}
