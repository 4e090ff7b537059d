package log

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackHookAttachesStackAtErrorLevel(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	logger := zerolog.New(&sb).Hook(&stackHook{})

	logger.Error().Msg("boom")

	line := sb.String()
	require.Contains(t, line, `"stack":[`)
	assert.Contains(t, line, `"function"`)
	assert.Contains(t, line, `"file"`)
	assert.Contains(t, line, `"line"`)
	assert.Contains(t, line, "hook_test.go", "the stack must name the call site")
}

func TestStackHookSkipsLowerLevels(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	logger := zerolog.New(&sb).Hook(&stackHook{})

	logger.Info().Msg("fine")
	logger.Warn().Msg("still fine")

	assert.NotContains(t, sb.String(), `"stack"`)
}

func TestCallersEmptyOnExcessiveSkip(t *testing.T) {
	t.Parallel()

	assert.Empty(t, callers(1 << 10))
}
