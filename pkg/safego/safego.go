package safego

import (
	"go.uber.org/zap"
)

// Go launches a goroutine with panic recovery. A panicking goroutine
// logs the panic value with its stack and exits cleanly instead of
// taking down the gateway process.
//
// Usage:
//
//	safego.Go(logger, "emitter-flush", func() {
//	    // work that might panic
//	})
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer Recover(logger, name)
		fn()
	}()
}

// Recover logs a recovered panic. Intended for use as
// `defer safego.Recover(logger, name)` in goroutines not launched
// through Go.
func Recover(logger *zap.Logger, name string) {
	if r := recover(); r != nil {
		logger.Error("Goroutine panicked",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}
