package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/frame"
	"github.com/framegate/framegate/internal/domain/tool"
)

// ToolResult is the outcome of one tool.call, serialized into exactly
// one tool.result event. Result is the raw JSON document; failures
// carry an "error" member.
type ToolResult struct {
	ID     string
	Name   string
	Result json.RawMessage
}

// Payload renders the wire payload for the tool.result event.
func (r ToolResult) Payload() any {
	return map[string]any{"id": r.ID, "name": r.Name, "result": r.Result}
}

// Invocation records one tool call end to end.
type Invocation struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Args           map[string]any `json:"args"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
	Attempts       int            `json:"attempts"`
	StartedAt      time.Time      `json:"startedAt"`
	FinishedAt     time.Time      `json:"finishedAt"`
	CacheHit       bool           `json:"cacheHit,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// OrchestratorConfig bounds tool execution.
type OrchestratorConfig struct {
	Timeout time.Duration // per-attempt wall clock (TOOL_TIMEOUT_MS)
	Retries int           // retries after the first failure (TOOL_RETRIES)
}

// Orchestrator executes tool.call frames with timeout, retry and
// idempotency. One orchestrator per session; the registry and
// cache behind it are process-wide.
type Orchestrator struct {
	registry    tool.Registry
	cache       *IdempotencyCache
	cfg         OrchestratorConfig
	logger      *zap.Logger
	invocations []Invocation
}

// NewOrchestrator creates a per-session orchestrator.
func NewOrchestrator(registry tool.Registry, cache *IdempotencyCache, cfg OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "orchestrator")),
	}
}

// Execute runs the tool named in call and returns exactly one result.
// retriesOverride, when non-nil, replaces the configured retry budget
// (fault-injection paths disable retries this way).
//
// The attempt loop runs each try under the per-attempt timeout and
// backs off min(100·(attempt+1), 500)ms between tries.
func (o *Orchestrator) Execute(ctx context.Context, call frame.Event, idemKey string, retriesOverride *int) ToolResult {
	inv := Invocation{
		ID:             call.ID,
		Name:           call.Name,
		Args:           call.Args,
		IdempotencyKey: idemKey,
		StartedAt:      time.Now(),
	}
	defer func() {
		inv.FinishedAt = time.Now()
		o.invocations = append(o.invocations, inv)
	}()

	if call.Args == nil {
		inv.Error = "invalid tool arguments"
		return o.errorResult(call, "invalid tool arguments: body is not a JSON object")
	}

	key := o.cache.Key(idemKey, call.Name, call.Args)
	if cached, ok := o.cache.Get(key); ok {
		inv.CacheHit = true
		o.logger.Debug("Tool result served from idempotency cache",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
		)
		return ToolResult{ID: call.ID, Name: call.Name, Result: cached}
	}

	executor, ok := o.registry.Get(call.Name)
	if !ok {
		inv.Error = "unknown tool"
		return o.errorResult(call, "Unknown tool: "+call.Name)
	}

	retries := o.cfg.Retries
	if retriesOverride != nil {
		retries = *retriesOverride
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		inv.Attempts = attempt + 1

		res, err := o.runAttempt(ctx, executor, call.Args, attempt+1)
		if err == nil {
			serialized, mErr := json.Marshal(res)
			if mErr != nil {
				inv.Error = mErr.Error()
				return o.errorResult(call, "tool result not serializable: "+mErr.Error())
			}
			o.cache.Put(key, serialized)
			if attempt > 0 {
				o.logger.Info("Tool retry succeeded",
					zap.String("tool", call.Name),
					zap.Int("attempt", attempt+1),
				)
			}
			return ToolResult{ID: call.ID, Name: call.Name, Result: serialized}
		}

		lastErr = err
		o.logger.Warn("Tool attempt failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if attempt < retries {
			backoff := time.Duration(100*(attempt+1)) * time.Millisecond
			if backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				inv.Error = ctx.Err().Error()
				return o.errorResult(call, ctx.Err().Error())
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("tool %s produced no result", call.Name)
	}
	inv.Error = lastErr.Error()
	return o.errorResult(call, lastErr.Error())
}

// runAttempt executes one try under the per-attempt deadline. A tool
// that ignores its context cannot stall the session: the wait is
// bounded here and the goroutine is left to finish on its own.
func (o *Orchestrator) runAttempt(ctx context.Context, executor tool.Tool, args map[string]any, attempt int) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	attemptCtx = tool.WithAttempt(attemptCtx, attempt)

	type outcome struct {
		res map[string]any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		res, err := executor.Execute(attemptCtx, args)
		ch <- outcome{res: res, err: err}
	}()

	select {
	case out := <-ch:
		return out.res, out.err
	case <-attemptCtx.Done():
		return nil, fmt.Errorf("tool %s timed out after %s", executor.Name(), o.cfg.Timeout)
	}
}

// Invocations returns the per-session invocation log.
func (o *Orchestrator) Invocations() []Invocation {
	return o.invocations
}

// ToolLatency sums the wall clock spent executing tools.
func (o *Orchestrator) ToolLatency() time.Duration {
	var total time.Duration
	for _, inv := range o.invocations {
		total += inv.FinishedAt.Sub(inv.StartedAt)
	}
	return total
}

func (o *Orchestrator) errorResult(call frame.Event, msg string) ToolResult {
	serialized, _ := json.Marshal(map[string]any{"error": msg})
	return ToolResult{ID: call.ID, Name: call.Name, Result: serialized}
}
