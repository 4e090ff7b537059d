package redact_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/exportify/redact"
)

func TestString(t *testing.T) {
	t.Parallel()

	token := "BQDWaeCYvzFDVFiGEWCZ5ejw"
	got := redact.String(token)
	assert.Len(t, got, len(token))
	assert.True(t, strings.HasPrefix(got, token[:6]))
	assert.Contains(t, got, "************")
	assert.NotContains(t, got, token[8:16])
}

func TestStringShort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "*****", redact.String("short"))
	assert.Equal(t, "", redact.String(""))
}
