// Package scripted implements a deterministic in-process provider.
// It replays canned sentinel-framed streams keyed by the testKey tag
// in the opening user message, so every fault-injection path of the
// gateway can be exercised without a live model.
package scripted

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/service"
	"github.com/framegate/framegate/internal/infrastructure/llm"
)

func init() {
	llm.RegisterFactory("scripted", func(cfg llm.ProviderConfig, logger *zap.Logger) service.Provider {
		return New(cfg.Model, logger)
	})
}

// chunkSize is the delta granularity of the replay. Small enough that
// frame bodies span many deltas, exercising the tokenizer's buffering.
const chunkSize = 12

var testKeyRe = regexp.MustCompile(`\[testKey=([a-zA-Z_]+)\]`)

// Provider is the scripted provider.
type Provider struct {
	model  string
	logger *zap.Logger
}

var _ service.Provider = (*Provider)(nil)

// New creates a scripted provider reporting the given model id.
func New(model string, logger *zap.Logger) *Provider {
	if model == "" {
		model = "scripted-v1"
	}
	return &Provider{
		model:  model,
		logger: logger.With(zap.String("component", "provider"), zap.String("provider", "scripted")),
	}
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// toolResult is one spliced TOOL_RESULT message, parsed back out of
// the conversation.
type toolResult struct {
	Name string
	Body map[string]any
}

// Stream replays the script selected by the conversation's testKey and
// round (the number of tool results spliced in so far).
func (p *Provider) Stream(ctx context.Context, req service.ProviderRequest, onDelta func(string)) error {
	testKey, prompt := parsePrompt(req.Messages)
	results := parseToolResults(req.Messages)

	p.logger.Debug("Scripted round",
		zap.String("test_key", testKey),
		zap.Int("round", len(results)),
	)

	switch testKey {
	case "silence_test":
		// Emit nothing at all; the session's frame timer decides.
		<-ctx.Done()
		return ctx.Err()

	case "provider_fallback_test":
		return p.emit(ctx, onDelta, "I am unable to produce a structured reply right now.")

	case "repair_test":
		return p.emit(ctx, onDelta, resultFrame("rep-1",
			`{"answer":"broken","citations":[],"confidence":"high"}`))

	case "backpressure_test":
		return p.emit(ctx, onDelta, resultFrame("bp-1", backpressureReply()))

	case "retry_test":
		return p.retryRound(ctx, onDelta, results)

	case "timeout_test":
		return p.timeoutRound(ctx, onDelta, results)

	default:
		return p.bookingRound(ctx, onDelta, prompt, results)
	}
}

// retryRound calls test.retry once, then reports how many attempts the
// orchestrator needed.
func (p *Provider) retryRound(ctx context.Context, onDelta func(string), results []toolResult) error {
	if len(results) == 0 {
		return p.emit(ctx, onDelta, toolFrame("retry-1", "test.retry", `{}`))
	}
	attempt, _ := results[0].Body["attempt"].(float64)
	return p.emit(ctx, onDelta, resultFrame("r-retry",
		replyJSON(fmt.Sprintf("Retry attempts %d", int(attempt)), "test.retry")))
}

// timeoutRound calls test.slow once, then quotes the orchestrator's
// error back in the reply.
func (p *Provider) timeoutRound(ctx context.Context, onDelta func(string), results []toolResult) error {
	if len(results) == 0 {
		return p.emit(ctx, onDelta, toolFrame("slow-1", "test.slow", `{}`))
	}
	errMsg, _ := results[0].Body["error"].(string)
	return p.emit(ctx, onDelta, resultFrame("r-slow",
		replyJSON("Tool failed: "+errMsg, "test.slow")))
}

// bookingRound is the happy path: search for a place, book the first
// open one, then summarize.
func (p *Provider) bookingRound(ctx context.Context, onDelta func(string), prompt string, results []toolResult) error {
	switch len(results) {
	case 0:
		query := prompt
		if query == "" {
			query = "dinner"
		}
		args, _ := json.Marshal(map[string]any{"query": query, "limit": 5})
		action, _ := json.Marshal(map[string]any{"type": "search", "query": query, "limit": 5})
		script := "Let me look for options. " +
			objectFrame("act-1", "Action", string(action)) +
			toolFrame("call-1", "places.search", string(args))
		return p.emit(ctx, onDelta, script)

	case 1:
		place, ok := firstOpenPlace(results[0].Body)
		if !ok {
			return p.emit(ctx, onDelta, resultFrame("r-1",
				replyJSON("I found no places, none open for booking.", "places.search")))
		}
		args, _ := json.Marshal(map[string]any{"place_id": place["id"], "time": "19:00", "party_size": 2})
		action, _ := json.Marshal(map[string]any{"type": "book", "place_id": place["id"], "time": "19:00", "party_size": 2})
		script := objectFrame("act-2", "Action", string(action)) +
			toolFrame("call-2", "bookings.create", string(args))
		return p.emit(ctx, onDelta, script)

	default:
		booking := results[len(results)-1].Body
		placeName, _ := booking["place"].(string)
		bookingID, _ := booking["booking_id"].(string)
		answer := fmt.Sprintf("Booked at %s, confirmation %s.", placeName, bookingID)
		return p.emit(ctx, onDelta, resultFrame("r-1",
			replyJSON(answer, "places.search", "bookings.create")))
	}
}

// emit feeds the script to onDelta in small rune-aligned chunks,
// stopping early on cancellation.
func (p *Provider) emit(ctx context.Context, onDelta func(string), script string) error {
	var chunk strings.Builder
	for _, r := range script {
		chunk.WriteRune(r)
		if chunk.Len() >= chunkSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			onDelta(chunk.String())
			chunk.Reset()
		}
	}
	if chunk.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		onDelta(chunk.String())
	}
	return nil
}

func parsePrompt(messages []service.Message) (testKey, prompt string) {
	for _, m := range messages {
		if m.Role != "user" || strings.HasPrefix(m.Content, "TOOL_RESULT ") {
			continue
		}
		prompt = m.Content
		if match := testKeyRe.FindStringSubmatch(prompt); match != nil {
			testKey = match[1]
			prompt = strings.TrimSpace(strings.Replace(prompt, match[0], "", 1))
		}
		return testKey, prompt
	}
	return "", ""
}

func parseToolResults(messages []service.Message) []toolResult {
	var results []toolResult
	for _, m := range messages {
		if m.Role != "user" || !strings.HasPrefix(m.Content, "TOOL_RESULT ") {
			continue
		}
		header, body, _ := strings.Cut(m.Content, "\n")
		name := ""
		if _, after, ok := strings.Cut(header, "name="); ok {
			name, _, _ = strings.Cut(after, " ")
		}
		parsed := map[string]any{}
		_ = json.Unmarshal([]byte(body), &parsed)
		results = append(results, toolResult{Name: name, Body: parsed})
	}
	return results
}

func firstOpenPlace(result map[string]any) (map[string]any, bool) {
	places, _ := result["places"].([]any)
	for _, p := range places {
		place, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if open, _ := place["open"].(bool); open {
			return place, true
		}
	}
	return nil, false
}

func replyJSON(answer string, citations ...string) string {
	if citations == nil {
		citations = []string{}
	}
	body, _ := json.Marshal(map[string]any{"answer": answer, "citations": citations})
	return string(body)
}

// backpressureReply pads the answer so the reply body spans dozens of
// deltas downstream.
func backpressureReply() string {
	return replyJSON(strings.Repeat("Streaming a long structured reply to fill the queue. ", 20), "stress")
}

func objectFrame(id, schema, body string) string {
	return fmt.Sprintf("⟦BEGIN_OBJECT id=%s schema=%s⟧%s⟦END_OBJECT id=%s schema=%s⟧", id, schema, body, id, schema)
}

func toolFrame(id, name, args string) string {
	return fmt.Sprintf("⟦BEGIN_TOOL_CALL id=%s name=%s⟧%s⟦END_TOOL_CALL id=%s name=%s⟧", id, name, args, id, name)
}

func resultFrame(id, body string) string {
	return fmt.Sprintf("⟦BEGIN_RESULT id=%s schema=AssistantReply⟧%s⟦END_RESULT id=%s schema=AssistantReply⟧", id, body, id)
}
