package frame

// Kind identifies what a sentinel-bracketed frame carries.
type Kind string

const (
	KindObject Kind = "object" // free-standing structured document
	KindTool   Kind = "tool"   // tool invocation
	KindResult Kind = "result" // terminal reply
)

// EventType names a frame lifecycle event. The values double as SSE
// event names on the wire.
type EventType string

const (
	EventTextDelta   EventType = "text.delta"
	EventJSONBegin   EventType = "json.begin"
	EventJSONDelta   EventType = "json.delta"
	EventJSONEnd     EventType = "json.end"
	EventToolCall    EventType = "tool.call"
	EventToolResult  EventType = "tool.result"
	EventResultBegin EventType = "result.begin"
	EventResultDelta EventType = "result.delta"
	EventResultEnd   EventType = "result.end"
	EventError       EventType = "error"
	EventPing        EventType = "ping"
	EventDone        EventType = "done"
)

// Event is a single entry in the totally ordered event sequence the
// tokenizer produces. Which fields are set depends on Type.
type Event struct {
	Type   EventType
	ID     string
	Schema string // object/result frames
	Name   string // tool frames
	Chunk  string // text.delta, json.delta, result.delta
	Length int    // json.end, result.end: total body bytes
	Args   map[string]any // tool.call; nil when the body was not valid JSON
	Body   string // tool.call / *.end: the complete accumulated body
}

// Payload renders the wire payload for tokenizer-produced events,
// matching the published event table.
func (e Event) Payload() any {
	switch e.Type {
	case EventJSONBegin, EventResultBegin:
		return map[string]any{"id": e.ID, "schema": e.Schema}
	case EventJSONDelta, EventResultDelta:
		return map[string]any{"id": e.ID, "chunk": e.Chunk}
	case EventJSONEnd, EventResultEnd:
		return map[string]any{"id": e.ID, "length": e.Length}
	case EventToolCall:
		var args any
		if e.Args != nil {
			args = e.Args
		}
		return map[string]any{"id": e.ID, "name": e.Name, "args": args}
	case EventTextDelta:
		return map[string]any{"chunk": e.Chunk}
	default:
		return map[string]any{}
	}
}

// State tracks the single active frame between its opening and
// closing sentinel.
type State struct {
	Kind   Kind
	ID     string
	Schema string // object/result
	Name   string // tool
	body   []byte
}

// Body returns the bytes accumulated so far.
func (s *State) Body() string { return string(s.body) }
