package service

import "context"

// Emitter is the outbound event queue the session writes to.
// Implementations serialize events in FIFO order; Send after Close
// is a no-op.
type Emitter interface {
	Send(event string, data any)
	Close()
}

// ArtifactsWriter persists a session's on-disk artifacts. A nil-safe
// no-op implementation is acceptable; artifact failures never fail
// the stream.
type ArtifactsWriter interface {
	WritePrompt(v any) error
	AppendFrame(event string, data any) error
	WriteResult(body string) error
	WriteMetrics(m Metrics) error
}

// Message is one entry of the provider conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderRequest carries one round's conversation plus the
// deterministic sampling parameters.
type ProviderRequest struct {
	Messages    []Message
	Model       string
	Temperature float32
	Seed        int
	MaxTokens   int
}

// Provider is the upstream token source. Stream delivers textual
// deltas through onDelta until the round completes, the context is
// cancelled, or the provider fails.
type Provider interface {
	Model() string
	Stream(ctx context.Context, req ProviderRequest, onDelta func(string)) error
}
