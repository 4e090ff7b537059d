package log

import (
	"runtime"

	"github.com/rs/zerolog"
)

// stackHook attaches the caller stack to error-and-above events so failed
// export runs can be traced back without a debugger attached.
type stackHook struct{}

func (h *stackHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level < zerolog.ErrorLevel {
		return
	}

	arr := zerolog.Arr()
	for _, f := range callers(5) {
		arr.Dict(zerolog.Dict().
			Str("function", f.Function).
			Str("file", f.File).
			Int("line", f.Line),
		)
	}
	e.Array("stack", arr)
}

// callers collects the frames above skip, deepest call site first.
func callers(skip int) []runtime.Frame {
	var pcs [64]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	collected := make([]runtime.Frame, 0, n)
	for {
		f, more := frames.Next()
		collected = append(collected, f)
		if !more {
			break
		}
	}

	return collected
}
