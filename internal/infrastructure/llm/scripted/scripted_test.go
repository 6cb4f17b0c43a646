package scripted

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/service"
)

func collect(t *testing.T, messages []service.Message) string {
	t.Helper()
	p := New("", zap.NewNop())
	var sb strings.Builder
	err := p.Stream(context.Background(), service.ProviderRequest{Messages: messages}, func(s string) {
		sb.WriteString(s)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	return sb.String()
}

func userMessage(prompt string) service.Message {
	return service.Message{Role: "user", Content: prompt}
}

func TestHappyPathFirstRoundSearches(t *testing.T) {
	out := collect(t, []service.Message{userMessage("book me ramen")})

	if !strings.Contains(out, "⟦BEGIN_OBJECT id=act-1 schema=Action⟧") {
		t.Fatalf("missing action frame: %q", out)
	}
	if !strings.Contains(out, "⟦BEGIN_TOOL_CALL id=call-1 name=places.search⟧") {
		t.Fatalf("missing tool call: %q", out)
	}
	if !strings.Contains(out, `"query":"book me ramen"`) {
		t.Fatalf("query not derived from prompt: %q", out)
	}
}

func TestHappyPathBooksFirstOpenPlace(t *testing.T) {
	out := collect(t, []service.Message{
		userMessage("book me ramen"),
		userMessage(`TOOL_RESULT id=call-1 name=places.search
{"places":[{"id":"p1","name":"Closed Door","open":false},{"id":"p2","name":"Menya","open":true}]}`),
	})

	if !strings.Contains(out, "name=bookings.create") {
		t.Fatalf("expected booking call: %q", out)
	}
	if !strings.Contains(out, `"place_id":"p2"`) {
		t.Fatalf("should book the first open place: %q", out)
	}
}

func TestHappyPathFinalReply(t *testing.T) {
	out := collect(t, []service.Message{
		userMessage("book me ramen"),
		userMessage("TOOL_RESULT id=call-1 name=places.search\n" +
			`{"places":[{"id":"p2","name":"Menya","open":true}]}`),
		userMessage("TOOL_RESULT id=call-2 name=bookings.create\n" +
			`{"booking_id":"b-1","place":"Menya","status":"confirmed"}`),
	})

	if !strings.Contains(out, "schema=AssistantReply") {
		t.Fatalf("expected a result frame: %q", out)
	}
	if !strings.Contains(out, "Booked at Menya") {
		t.Fatalf("reply = %q", out)
	}
}

func TestNoOpenPlacesRepliesDirectly(t *testing.T) {
	out := collect(t, []service.Message{
		userMessage("book me ramen"),
		userMessage("TOOL_RESULT id=call-1 name=places.search\n" +
			`{"places":[{"id":"p1","name":"Closed Door","open":false}]}`),
	})

	if strings.Contains(out, "bookings.create") {
		t.Fatalf("should not book: %q", out)
	}
	if !strings.Contains(out, "none open") {
		t.Fatalf("reply = %q", out)
	}
}

func TestRetryScriptReportsAttempts(t *testing.T) {
	first := collect(t, []service.Message{userMessage("hello [testKey=retry_test]")})
	if !strings.Contains(first, "name=test.retry") {
		t.Fatalf("first round = %q", first)
	}

	second := collect(t, []service.Message{
		userMessage("hello [testKey=retry_test]"),
		userMessage("TOOL_RESULT id=retry-1 name=test.retry\n{\"attempt\":2}"),
	})
	if !strings.Contains(second, "Retry attempts 2") {
		t.Fatalf("second round = %q", second)
	}
}

func TestTimeoutScriptQuotesError(t *testing.T) {
	out := collect(t, []service.Message{
		userMessage("hello [testKey=timeout_test]"),
		userMessage("TOOL_RESULT id=slow-1 name=test.slow\n{\"error\":\"tool test.slow timed out after 8s\"}"),
	})
	if !strings.Contains(out, "timed out") {
		t.Fatalf("reply = %q", out)
	}
}

func TestRepairScriptEmitsInvalidReply(t *testing.T) {
	out := collect(t, []service.Message{userMessage("hello [testKey=repair_test]")})
	if !strings.Contains(out, `"confidence"`) {
		t.Fatalf("expected schema-invalid reply: %q", out)
	}
}

func TestFallbackScriptEmitsNoFrames(t *testing.T) {
	out := collect(t, []service.Message{userMessage("hello [testKey=provider_fallback_test]")})
	if strings.Contains(out, "⟦") {
		t.Fatalf("expected plain prose: %q", out)
	}
}

func TestSilenceScriptBlocksUntilCancel(t *testing.T) {
	p := New("", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := p.Stream(ctx, service.ProviderRequest{
		Messages: []service.Message{userMessage("hello [testKey=silence_test]")},
	}, func(string) {
		t.Fatal("silence script must not emit deltas")
	})
	if err == nil {
		t.Fatal("expected a context error")
	}
}

func TestBackpressureScriptSpansManyChunks(t *testing.T) {
	p := New("", zap.NewNop())
	var chunks int
	err := p.Stream(context.Background(), service.ProviderRequest{
		Messages: []service.Message{userMessage("hello [testKey=backpressure_test]")},
	}, func(string) { chunks++ })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if chunks < 20 {
		t.Fatalf("chunks = %d, want a long stream", chunks)
	}
}
