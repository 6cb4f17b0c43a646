package emitter

import (
	"fmt"
	"net/http"
)

// SSESink renders events as Server-Sent Events frames:
//
//	event: <name>\n
//	data: <json>\n\n
//
// Every event is flushed immediately so begin/delta/end boundaries
// reach the client as they happen.
type SSESink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

var _ Sink = (*SSESink)(nil)

// NewSSESink prepares w for an SSE response. It fails when the
// underlying writer cannot flush incrementally.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &SSESink{w: w, flusher: flusher}, nil
}

// WriteEvent writes one SSE frame and flushes it.
func (s *SSESink) WriteEvent(event string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
