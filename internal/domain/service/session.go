package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/framegate/framegate/pkg/errors"

	"github.com/framegate/framegate/internal/domain/frame"
	"github.com/framegate/framegate/internal/domain/repair"
	"github.com/framegate/framegate/internal/domain/schema"
)

// MaxRounds bounds the provider round loop per session.
const MaxRounds = 5

// systemPrompt describes the sentinel protocol the model must emit.
const systemPrompt = `You are a structured assistant. Emit structured output inside sentinel frames:
- Objects: ⟦BEGIN_OBJECT id=<id> schema=<Schema>⟧<json>⟦END_OBJECT id=<id> schema=<Schema>⟧
- Tool calls: ⟦BEGIN_TOOL_CALL id=<id> name=<tool>⟧<json args>⟦END_TOOL_CALL id=<id> name=<tool>⟧
- Final reply: ⟦BEGIN_RESULT id=<id> schema=AssistantReply⟧<json>⟦END_RESULT id=<id> schema=AssistantReply⟧
After a tool call, stop and wait for a TOOL_RESULT message, then continue.
Always finish with exactly one AssistantReply result frame.`

// SessionConfig carries the per-request operational parameters.
type SessionConfig struct {
	FrameTimeout  time.Duration // FRAME_TIMEOUT_MS
	ToolTimeout   time.Duration // TOOL_TIMEOUT_MS
	ToolRetries   int           // TOOL_RETRIES
	RepairRetries int           // REPAIR_RETRIES
	Model         string
	Temperature   float32
	Seed          int
	MaxTokens     int
}

// Request is the client-facing stream request.
type Request struct {
	Prompt          string
	Mode            string
	TestKey         string
	IdempotencyKey  string
	RetriesOverride *int // test-only orchestration paths disable retries
}

// Session owns one request's lifecycle: it drives provider
// rounds through the tokenizer, validates completed frames, executes
// tool calls between rounds, decides fallback and repair, writes
// artifacts and terminates cleanly. A session is used once.
type Session struct {
	id        string
	cfg       SessionConfig
	provider  Provider
	emitter   Emitter
	validator *schema.Validator
	repairer  *repair.Repairer
	orch      *Orchestrator
	artifacts ArtifactsWriter
	logger    *zap.Logger

	tokenizer *frame.Tokenizer

	mu            sync.Mutex
	closed        atomic.Bool
	timedOut      atomic.Bool
	degraded      bool
	sawResult     bool
	lastResultID  string
	lastResultOK  bool
	lastResult    string // body of the reply the client ultimately received
	pendingTools  []frame.Event
	cancelRound   context.CancelFunc
	cancelSession context.CancelFunc
	frameTimer    *time.Timer
}

// NewSession wires a session from the shared collaborators. An empty
// id gets a generated one.
func NewSession(
	id string,
	cfg SessionConfig,
	provider Provider,
	emitter Emitter,
	validator *schema.Validator,
	repairer *repair.Repairer,
	orch *Orchestrator,
	artifacts ArtifactsWriter,
	logger *zap.Logger,
) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		id:        id,
		cfg:       cfg,
		provider:  provider,
		emitter:   emitter,
		validator: validator,
		repairer:  repairer,
		orch:      orch,
		artifacts: artifacts,
	}
	s.logger = logger.With(zap.String("session_id", s.id))
	s.tokenizer = frame.NewTokenizer(s.handleEvent)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run drives the session to completion and returns its metrics.
// ctx is the transport context: its cancellation means the client
// disconnected.
func (s *Session) Run(ctx context.Context, req Request) Metrics {
	start := time.Now()

	if err := s.artifacts.WritePrompt(map[string]any{
		"sessionId":      s.id,
		"prompt":         req.Prompt,
		"mode":           req.Mode,
		"testKey":        req.TestKey,
		"idempotencyKey": req.IdempotencyKey,
		"model":          s.cfg.Model,
		"temperature":    s.cfg.Temperature,
		"seed":           s.cfg.Seed,
		"maxTokens":      s.cfg.MaxTokens,
	}); err != nil {
		s.logger.Warn("Failed to write prompt artifact", zap.Error(err))
	}

	sessionCtx, cancelSession := context.WithCancel(context.Background())
	defer cancelSession()
	s.mu.Lock()
	s.cancelSession = cancelSession
	s.mu.Unlock()

	// Transport watchdog: a client disconnect closes the session;
	// nothing is written afterwards and no done is emitted.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			if s.closed.CompareAndSwap(false, true) {
				s.logger.Info("Client disconnected, closing session")
			}
			cancelSession()
		case <-watchDone:
		}
	}()

	// Frame-silence timer: resets on every frame lifecycle event.
	s.frameTimer = time.AfterFunc(s.cfg.FrameTimeout, s.onFrameTimeout)
	defer s.frameTimer.Stop()

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: s.userPrompt(req)},
	}

	s.runRounds(sessionCtx, req, messages)

	if !s.closed.Load() {
		s.finalize()
		s.send("done", map[string]any{})
	}

	metrics := s.buildMetrics(start)
	if err := s.artifacts.WriteMetrics(metrics); err != nil {
		s.logger.Warn("Failed to write metrics artifact", zap.Error(err))
	}
	s.emitter.Close()

	s.logger.Info("Session finished",
		zap.Int64("total_ms", metrics.TotalMs),
		zap.Bool("degraded", metrics.Degraded),
		zap.Bool("cancelled", s.closed.Load() && !s.timedOut.Load()),
	)
	return metrics
}

// runRounds performs up to MaxRounds provider invocations, splicing
// tool results into the conversation between rounds.
func (s *Session) runRounds(sessionCtx context.Context, req Request, messages []Message) {
	for round := 0; round < MaxRounds; round++ {
		if s.closed.Load() {
			return
		}

		s.mu.Lock()
		s.pendingTools = nil
		roundCtx, cancelRound := context.WithCancel(sessionCtx)
		s.cancelRound = cancelRound
		s.mu.Unlock()

		err := s.provider.Stream(roundCtx, ProviderRequest{
			Messages:    messages,
			Model:       s.cfg.Model,
			Temperature: s.cfg.Temperature,
			Seed:        s.cfg.Seed,
			MaxTokens:   s.cfg.MaxTokens,
		}, s.tokenizer.Feed)
		cancelRound()

		s.mu.Lock()
		pending := s.pendingTools
		s.pendingTools = nil
		s.mu.Unlock()

		// A round aborted to run a tool reports a cancellation;
		// that is the controller's own doing, not a provider failure.
		if err != nil && !errors.Is(err, context.Canceled) && len(pending) == 0 {
			if s.closed.Load() {
				return
			}
			s.logger.Error("Provider round failed", zap.Int("round", round), zap.Error(err))
			s.sendError(apperrors.CodeInternal, "provider request failed")
			s.closed.Store(true)
			s.mu.Lock()
			s.degraded = true
			s.mu.Unlock()
			return
		}

		if len(pending) == 0 {
			return
		}

		// The silence timer guards the provider stream; tool wall-clock
		// is bounded by the orchestrator's own timeouts, so it pauses
		// while the tools run.
		s.frameTimer.Stop()

		// Tool execution is bound by its own timeouts, not by the
		// transport: a disconnecting client does not cancel the tool,
		// but its result is only emitted to a live stream. Each call
		// goes to the wire right before it runs so every tool.call is
		// followed by its own tool.result.
		for _, call := range pending {
			s.send(string(call.Type), call.Payload())
			result := s.orch.Execute(context.Background(), call, req.IdempotencyKey, req.RetriesOverride)
			s.send(string(frame.EventToolResult), result.Payload())

			messages = append(messages, Message{
				Role:    "user",
				Content: fmt.Sprintf("TOOL_RESULT id=%s name=%s\n%s", result.ID, result.Name, string(result.Result)),
			})
		}
		s.resetFrameTimer()
	}
}

// finalize applies the fallback and repair policies after the round
// loop: a missing reply degrades to provider_no_result, an invalid
// reply gets exactly one repair.
func (s *Session) finalize() {
	if err := s.tokenizer.Close(); err != nil {
		s.logger.Warn("Tokenizer closed with open frame", zap.Error(err))
	}

	s.mu.Lock()
	sawResult := s.sawResult
	lastOK := s.lastResultOK
	lastID := s.lastResultID
	lastBody := s.lastResult
	s.mu.Unlock()

	switch {
	case !sawResult:
		s.logger.Warn("Provider produced no result frame, emitting fallback reply")
		body := repair.FallbackReply(s.cfg.Model)
		s.emitResultFrame(uuid.NewString(), body)
		s.setDegraded()
		s.storeResultBody(body)

	case !lastOK && s.cfg.RepairRetries > 0:
		note, _ := s.validator.NoteFor(lastID)
		outcome := s.repairer.Repair(note, lastBody)
		s.emitResultFrame(uuid.NewString(), outcome.Body)
		s.setDegraded()
		s.storeResultBody(outcome.Body)

	case !lastOK:
		// Repair budget exhausted by configuration; the invalid reply
		// stands and the session is only flagged.
		s.setDegraded()
	}

	s.mu.Lock()
	body := s.lastResult
	s.mu.Unlock()
	if body != "" {
		if err := s.artifacts.WriteResult(body); err != nil {
			s.logger.Warn("Failed to write result artifact", zap.Error(err))
		}
	}
}

// emitResultFrame streams a synthesized Result frame (fallback or
// repaired reply) as a fresh id.
func (s *Session) emitResultFrame(id, body string) {
	s.send(string(frame.EventResultBegin), map[string]any{"id": id, "schema": schema.SchemaAssistantReply})
	s.send(string(frame.EventResultDelta), map[string]any{"id": id, "chunk": body})
	s.send(string(frame.EventResultEnd), map[string]any{"id": id, "length": len(body)})
}

// handleEvent receives the tokenizer's ordered event sequence.
func (s *Session) handleEvent(e frame.Event) {
	if e.Type == frame.EventTextDelta {
		// Inter-frame prose is discardable; it is not a frame
		// lifecycle event and does not feed the silence timer.
		return
	}

	s.resetFrameTimer()

	switch e.Type {
	case frame.EventJSONEnd:
		s.validator.Check(frame.KindObject, e.ID, e.Schema, e.Body)

	case frame.EventResultEnd:
		note := s.validator.Check(frame.KindResult, e.ID, e.Schema, e.Body)
		s.mu.Lock()
		s.sawResult = true
		s.lastResultID = e.ID
		s.lastResultOK = note.OK
		s.lastResult = e.Body
		s.mu.Unlock()

	case frame.EventToolCall:
		// Queue the call; it is emitted when the orchestrator picks it
		// up between rounds. A model that keeps streaming past its
		// first call still gets every call executed, in order.
		s.mu.Lock()
		s.pendingTools = append(s.pendingTools, e)
		cancel := s.cancelRound
		s.mu.Unlock()
		// Abort the current provider round; the orchestrator runs
		// before the next one starts.
		if cancel != nil {
			cancel()
		}
		return
	}

	s.send(string(e.Type), e.Payload())
}

// send forwards one event to the emitter and the frame log. After a
// close (cancel or timeout) all production paths short-circuit.
func (s *Session) send(event string, data any) {
	if s.closed.Load() {
		return
	}
	if err := s.artifacts.AppendFrame(event, data); err != nil {
		s.logger.Warn("Failed to append frame artifact", zap.Error(err))
	}
	s.emitter.Send(event, data)
}

func (s *Session) sendError(code apperrors.ErrorCode, message string) {
	s.send(string(frame.EventError), map[string]any{"code": string(code), "message": message})
}

// onFrameTimeout fires when no frame lifecycle event arrived within
// FrameTimeout. Exactly one frame_timeout error is emitted, then the
// session closes.
func (s *Session) onFrameTimeout() {
	if !s.timedOut.CompareAndSwap(false, true) {
		return
	}
	if s.closed.Load() {
		return
	}
	s.logger.Warn("Frame silence timeout", zap.Duration("timeout", s.cfg.FrameTimeout))
	s.sendError(apperrors.CodeFrameTimeout,
		fmt.Sprintf("no frame activity for %s", s.cfg.FrameTimeout))
	s.closed.Store(true)
	s.setDegraded()

	s.mu.Lock()
	cancel := s.cancelSession
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) resetFrameTimer() {
	if s.frameTimer != nil {
		s.frameTimer.Reset(s.cfg.FrameTimeout)
	}
}

func (s *Session) setDegraded() {
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
}

func (s *Session) storeResultBody(body string) {
	s.mu.Lock()
	s.lastResult = body
	s.mu.Unlock()
}

func (s *Session) buildMetrics(start time.Time) Metrics {
	m := Metrics{
		TotalMs:    time.Since(start).Milliseconds(),
		Model:      s.cfg.Model,
		Validation: s.validator.Counts(),
	}
	s.mu.Lock()
	m.Degraded = s.degraded
	s.mu.Unlock()

	if len(s.orch.Invocations()) > 0 {
		latency := s.orch.ToolLatency().Milliseconds()
		m.ToolLatencyMs = &latency
	}
	return m
}

// userPrompt tags the prompt so the scripted provider can pick its
// scenario. The mode wins over the opaque testKey when both are set.
func (s *Session) userPrompt(req Request) string {
	tag := req.Mode
	if tag == "" {
		tag = req.TestKey
	}
	if tag != "" {
		return fmt.Sprintf("%s\n[testKey=%s]", req.Prompt, tag)
	}
	return req.Prompt
}
