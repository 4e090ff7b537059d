package spotify

import (
	"github.com/xeptore/exportify/mathutil"
	"github.com/xeptore/exportify/must"
)

// Window is one (offset, limit) slice of a paginated remote collection.
type Window struct {
	Offset int
	Limit  int
}

// Windows plans the ordered page requests needed to cover a collection of
// total items when the endpoint accepts at most size items per call. Windows
// are contiguous and non-overlapping, offsets advance by size, and the last
// window is trimmed to the remainder.
func Windows(total, size int) []Window {
	must.Be(size > 0, "batch size must be positive")

	if total <= 0 {
		return nil
	}

	ws := make([]Window, 0, mathutil.DivCeil(total, size))
	for offset := 0; offset < total; offset += size {
		ws = append(ws, Window{Offset: offset, Limit: min(size, total-offset)})
	}

	return ws
}
