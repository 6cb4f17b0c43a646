package tool

import "context"

type ctxKey int

const attemptKey ctxKey = iota

// WithAttempt annotates ctx with the 1-based attempt number of the
// current execution. The orchestrator sets this on every attempt.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt returns the 1-based attempt number, or 0 when the context
// carries none (e.g. direct invocation outside the orchestrator).
func Attempt(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey).(int)
	return n
}
