// Package artifacts persists the on-disk record of each session:
// the prompt, the full frame log as JSON lines, the final reply and
// the run metrics.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/framegate/framegate/internal/domain/service"
)

// Writer writes one session's artifacts under <root>/<sessionID>/:
//
//	prompt.json    the incoming request and resolved parameters
//	frames.ndjson  every emitted event, one JSON object per line
//	result.json    the final reply body the client received
//	metrics.json   the session summary
type Writer struct {
	dir string

	mu     sync.Mutex
	frames *os.File
}

var _ service.ArtifactsWriter = (*Writer)(nil)

// NewWriter creates the session directory and opens the frame log.
func NewWriter(root, sessionID string) (*Writer, error) {
	dir := filepath.Join(root, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	frames, err := os.OpenFile(filepath.Join(dir, "frames.ndjson"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open frame log: %w", err)
	}

	return &Writer{dir: dir, frames: frames}, nil
}

// Dir returns the session's artifact directory.
func (w *Writer) Dir() string { return w.dir }

// WritePrompt records the incoming request.
func (w *Writer) WritePrompt(v any) error {
	return w.writeJSON("prompt.json", v)
}

// AppendFrame appends one event line to frames.ndjson.
func (w *Writer) AppendFrame(event string, data any) error {
	line, err := json.Marshal(map[string]any{
		"t":     time.Now().UTC().Format(time.RFC3339Nano),
		"event": event,
		"data":  data,
	})
	if err != nil {
		return fmt.Errorf("marshal frame line: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.frames.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append frame line: %w", err)
	}
	return nil
}

// WriteResult records the final reply body verbatim.
func (w *Writer) WriteResult(body string) error {
	return os.WriteFile(filepath.Join(w.dir, "result.json"), []byte(body), 0644)
}

// WriteMetrics records the session summary.
func (w *Writer) WriteMetrics(m service.Metrics) error {
	return w.writeJSON("metrics.json", m)
}

// Close flushes and closes the frame log.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames.Close()
}

func (w *Writer) writeJSON(name string, v any) error {
	serialized, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(w.dir, name), serialized, 0644)
}

// Nop is a no-op writer for transports that opt out of persistence.
type Nop struct{}

var _ service.ArtifactsWriter = Nop{}

func (Nop) WritePrompt(any) error              { return nil }
func (Nop) AppendFrame(string, any) error      { return nil }
func (Nop) WriteResult(string) error           { return nil }
func (Nop) WriteMetrics(service.Metrics) error { return nil }
