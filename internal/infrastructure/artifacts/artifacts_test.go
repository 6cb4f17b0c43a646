package artifacts

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/framegate/framegate/internal/domain/service"
)

func TestWriterProducesAllArtifacts(t *testing.T) {
	root := t.TempDir()
	w, err := NewWriter(root, "sess-1")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := w.WritePrompt(map[string]any{"prompt": "hi"}); err != nil {
		t.Fatalf("WritePrompt: %v", err)
	}
	if err := w.AppendFrame("json.begin", map[string]any{"id": "a1"}); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if err := w.AppendFrame("done", map[string]any{}); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if err := w.WriteResult(`{"answer":"hi","citations":[]}`); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := w.WriteMetrics(service.Metrics{TotalMs: 12, Model: "m"}); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	dir := filepath.Join(root, "sess-1")
	for _, name := range []string{"prompt.json", "frames.ndjson", "result.json", "metrics.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}
}

func TestFrameLogIsValidNDJSON(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "sess-2")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	events := []string{"json.begin", "json.delta", "json.end", "done"}
	for _, e := range events {
		if err := w.AppendFrame(e, map[string]any{"id": "a1"}); err != nil {
			t.Fatalf("AppendFrame: %v", err)
		}
	}
	w.Close()

	f, err := os.Open(filepath.Join(w.Dir(), "frames.ndjson"))
	if err != nil {
		t.Fatalf("open frame log: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var i int
	for scanner.Scan() {
		var line struct {
			T     string          `json:"t"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("line %d not JSON: %v", i, err)
		}
		if line.Event != events[i] {
			t.Fatalf("line %d event = %s, want %s", i, line.Event, events[i])
		}
		if line.T == "" {
			t.Fatalf("line %d missing timestamp", i)
		}
		i++
	}
	if i != len(events) {
		t.Fatalf("lines = %d, want %d", i, len(events))
	}
}

func TestResultIsWrittenVerbatim(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "sess-3")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	body := `{"answer":"exact bytes","citations":[]}`
	if err := w.WriteResult(body); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(w.Dir(), "result.json"))
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if string(got) != body {
		t.Fatalf("result = %q, want %q", got, body)
	}
}
