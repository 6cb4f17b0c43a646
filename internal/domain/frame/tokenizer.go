package frame

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel brackets are fixed to U+27E6 / U+27E7.
const (
	lbracket = "⟦"
	rbracket = "⟧"

	beginMark = lbracket + "BEGIN_"
	endMark   = lbracket + "END_"
)

var (
	beginObjectRe = regexp.MustCompile(`^\x{27E6}BEGIN_OBJECT id=([^\s\x{27E6}\x{27E7}]+) schema=([^\s\x{27E6}\x{27E7}]+)\x{27E7}$`)
	beginToolRe   = regexp.MustCompile(`^\x{27E6}BEGIN_TOOL_CALL id=([^\s\x{27E6}\x{27E7}]+) name=([^\s\x{27E6}\x{27E7}]+)\x{27E7}$`)
	beginResultRe = regexp.MustCompile(`^\x{27E6}BEGIN_RESULT id=([^\s\x{27E6}\x{27E7}]+) schema=([^\s\x{27E6}\x{27E7}]+)\x{27E7}$`)
	endRe         = regexp.MustCompile(`^\x{27E6}END_(OBJECT|TOOL_CALL|RESULT)\b[^\x{27E7}]*\x{27E7}$`)
)

var endKinds = map[string]Kind{
	"OBJECT":    KindObject,
	"TOOL_CALL": KindTool,
	"RESULT":    KindResult,
}

// Handler receives tokenizer events in emission order. The tokenizer
// never backtracks across an emitted event.
type Handler func(Event)

// Tokenizer is the push-driven sentinel parser (frame demultiplexer).
// Callers feed text chunks of arbitrary size and boundaries; the
// tokenizer calls back with an ordered sequence of text.delta and
// frame lifecycle events.
//
// Not safe for concurrent Feed calls; a session owns its tokenizer.
type Tokenizer struct {
	emit   Handler
	buf    string
	active *State

	// JSON string literal tracking inside a frame body. End sentinels
	// are only recognized outside string literals, so bracket
	// characters inside strings (literal or ⟦-escaped) never
	// terminate a frame.
	inString bool
	escaped  bool
}

// NewTokenizer creates a tokenizer delivering events to emit.
func NewTokenizer(emit Handler) *Tokenizer {
	return &Tokenizer{emit: emit}
}

// Active returns the currently open frame, or nil.
func (t *Tokenizer) Active() *State { return t.active }

// Feed pushes the next chunk of provider text through the parser.
func (t *Tokenizer) Feed(chunk string) {
	if chunk == "" {
		return
	}
	t.buf += chunk
	for {
		var progressed bool
		if t.active == nil {
			progressed = t.scanOutside()
		} else {
			progressed = t.scanInside()
		}
		if !progressed {
			return
		}
	}
}

// Close flushes any retained text and reports an unterminated frame.
func (t *Tokenizer) Close() error {
	if t.active != nil {
		st := t.active
		t.active = nil
		t.buf = ""
		return fmt.Errorf("frame %s (%s) opened but never closed", st.ID, st.Kind)
	}
	if t.buf != "" {
		t.emit(Event{Type: EventTextDelta, Chunk: t.buf})
		t.buf = ""
	}
	return nil
}

// scanOutside looks for the earliest opening sentinel. Returns true
// when a frame was opened (or a malformed header consumed) and the
// buffer may hold more work.
func (t *Tokenizer) scanOutside() bool {
	i := strings.Index(t.buf, beginMark)
	if i < 0 {
		// Emit everything except a trailing partial begin marker.
		keep := overlapSuffix(t.buf, beginMark)
		if cut := len(t.buf) - keep; cut > 0 {
			t.emit(Event{Type: EventTextDelta, Chunk: t.buf[:cut]})
			t.buf = t.buf[cut:]
		}
		return false
	}

	if i > 0 {
		t.emit(Event{Type: EventTextDelta, Chunk: t.buf[:i]})
		t.buf = t.buf[i:]
	}

	// Wait for the header's closing bracket.
	j := strings.Index(t.buf, rbracket)
	if j < 0 {
		return false
	}
	header := t.buf[:j+len(rbracket)]
	rest := t.buf[j+len(rbracket):]

	st, ok := parseHeader(header)
	if !ok {
		// Unknown header shape degrades to plain text.
		t.emit(Event{Type: EventTextDelta, Chunk: header})
		t.buf = rest
		return true
	}

	t.active = st
	t.inString = false
	t.escaped = false
	t.buf = rest

	switch st.Kind {
	case KindObject:
		t.emit(Event{Type: EventJSONBegin, ID: st.ID, Schema: st.Schema})
	case KindResult:
		t.emit(Event{Type: EventResultBegin, ID: st.ID, Schema: st.Schema})
	case KindTool:
		// Tool frames emit nothing at open; a single tool.call fires at close.
	}
	return true
}

// scanInside consumes body bytes up to the matching end sentinel,
// tracking JSON string literals so brackets inside strings stay body.
// Returns true when the frame closed and scanning should restart
// in the outside state.
func (t *Tokenizer) scanInside() bool {
	data := t.buf
	i := 0
	for i < len(data) {
		c := data[i]

		if t.inString {
			switch {
			case t.escaped:
				t.escaped = false
			case c == '\\':
				t.escaped = true
			case c == '"':
				t.inString = false
			}
			i++
			continue
		}

		if c == '"' {
			t.inString = true
			i++
			continue
		}

		if strings.HasPrefix(data[i:], lbracket) {
			rest := data[i:]
			if j := strings.Index(rest, rbracket); j >= 0 {
				span := rest[:j+len(rbracket)]
				if m := endRe.FindStringSubmatch(span); m != nil && endKinds[m[1]] == t.active.Kind {
					t.appendBody(data[:i])
					t.buf = rest[j+len(rbracket):]
					t.closeActive()
					return true
				}
				// A bracket that is not our closer is ordinary body
				// (covers mismatched-kind and stray sentinels).
				i += len(lbracket)
				continue
			}
			// No closing bracket yet. Hold only if this could still
			// become our end sentinel.
			if couldBeEndSentinel(rest) {
				t.appendBody(data[:i])
				t.buf = rest
				return false
			}
			i += len(lbracket)
			continue
		}

		// Trailing bytes that may be the start of a multi-byte bracket.
		if c == lbracket[0] && len(data)-i < len(lbracket) && strings.HasPrefix(lbracket, data[i:]) {
			t.appendBody(data[:i])
			t.buf = data[i:]
			return false
		}

		i++
	}

	t.appendBody(data)
	t.buf = ""
	return false
}

// appendBody adds seg to the active frame and, for object/result
// frames, emits the corresponding delta. Empty segments emit nothing.
func (t *Tokenizer) appendBody(seg string) {
	if seg == "" {
		return
	}
	st := t.active
	st.body = append(st.body, seg...)
	switch st.Kind {
	case KindObject:
		t.emit(Event{Type: EventJSONDelta, ID: st.ID, Chunk: seg})
	case KindResult:
		t.emit(Event{Type: EventResultDelta, ID: st.ID, Chunk: seg})
	case KindTool:
		// Buffered only.
	}
}

func (t *Tokenizer) closeActive() {
	st := t.active
	t.active = nil
	t.inString = false
	t.escaped = false

	body := st.Body()
	switch st.Kind {
	case KindObject:
		t.emit(Event{Type: EventJSONEnd, ID: st.ID, Schema: st.Schema, Length: len(body), Body: body})
	case KindResult:
		t.emit(Event{Type: EventResultEnd, ID: st.ID, Schema: st.Schema, Length: len(body), Body: body})
	case KindTool:
		var args map[string]any
		if err := json.Unmarshal([]byte(body), &args); err != nil {
			// Unparseable arguments surface as args=null; the
			// orchestrator reports the tool error downstream.
			args = nil
		}
		t.emit(Event{Type: EventToolCall, ID: st.ID, Name: st.Name, Args: args, Body: body})
	}
}

func parseHeader(header string) (*State, bool) {
	if m := beginObjectRe.FindStringSubmatch(header); m != nil {
		return &State{Kind: KindObject, ID: m[1], Schema: m[2]}, true
	}
	if m := beginToolRe.FindStringSubmatch(header); m != nil {
		return &State{Kind: KindTool, ID: m[1], Name: m[2]}, true
	}
	if m := beginResultRe.FindStringSubmatch(header); m != nil {
		return &State{Kind: KindResult, ID: m[1], Schema: m[2]}, true
	}
	return nil, false
}

// couldBeEndSentinel reports whether rest (which starts with the left
// bracket) is still a plausible prefix of an end sentinel awaiting
// its closing bracket.
func couldBeEndSentinel(rest string) bool {
	if len(rest) < len(endMark) {
		return strings.HasPrefix(endMark, rest)
	}
	return strings.HasPrefix(rest, endMark)
}

// overlapSuffix returns the length of the longest suffix of s that is
// a proper prefix of mark. Used to retain a possibly split sentinel
// across chunk boundaries.
func overlapSuffix(s, mark string) int {
	max := len(mark) - 1
	if max > len(s) {
		max = len(s)
	}
	for k := max; k > 0; k-- {
		if strings.HasPrefix(mark, s[len(s)-k:]) {
			return k
		}
	}
	return 0
}
