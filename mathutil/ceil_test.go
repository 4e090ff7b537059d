package mathutil_test

import (
	"fmt"
	"testing"

	"github.com/xeptore/exportify/mathutil"
)

func TestDivCeil(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b, expected int
	}{
		{0, 1, 0},
		{1, 1, 1},
		{1, 2, 1},
		{2, 1, 2},
		{2, 2, 1},
		{99, 50, 2},
		{100, 50, 2},
		{101, 50, 3},
		{101, 100, 2},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("a=%d,b=%d", test.a, test.b), func(t *testing.T) {
			t.Parallel()

			actual := mathutil.DivCeil(test.a, test.b)
			if actual != test.expected {
				t.Errorf("expected %d, got %d", test.expected, actual)
			}
		})
	}
}
