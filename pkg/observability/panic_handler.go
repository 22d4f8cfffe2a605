package observability

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic marks errors converted from a recovered panic
var ErrPanic = errors.New("panic")

// PanicError turns a recovered value into an error wrapping ErrPanic, or
// nil when nothing was recovered
func PanicError(recovered interface{}) error {
	switch v := recovered.(type) {
	case nil:
		return nil
	case error:
		return fmt.Errorf("%w: %w", ErrPanic, v)
	default:
		return fmt.Errorf("%w: %v", ErrPanic, v)
	}
}

// RecoverPanic logs a panic in a long-running goroutine and lets the
// goroutine return. Call it directly in a defer:
//
//	defer observability.RecoverPanic(logger, "route policy watcher")
func RecoverPanic(logger *Logger, component string) {
	recovered := recover()
	if recovered == nil {
		return
	}
	logger.WithError(PanicError(recovered)).
		WithField("component", component).
		WithField("stack", string(debug.Stack())).
		Error("Recovered from panic")
}
