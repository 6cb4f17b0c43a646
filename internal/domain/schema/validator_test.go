package schema

import (
	"testing"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/frame"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	reg, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("builtin registry: %v", err)
	}
	return NewValidator(reg, zap.NewNop())
}

func TestValidator_ValidReply(t *testing.T) {
	v := newTestValidator(t)
	note := v.Check(frame.KindResult, "r1", SchemaAssistantReply,
		`{"answer":"Booked at Luigi's","citations":["places.search"]}`)
	if !note.OK {
		t.Fatalf("expected ok, errors: %v", note.Errors)
	}
}

func TestValidator_KeyOrderIrrelevant(t *testing.T) {
	v := newTestValidator(t)
	note := v.Check(frame.KindResult, "r1", SchemaAssistantReply,
		`{"citations":[],"diagnostics":{},"answer":"x"}`)
	if !note.OK {
		t.Fatalf("expected ok, errors: %v", note.Errors)
	}
}

func TestValidator_MissingRequiredField(t *testing.T) {
	v := newTestValidator(t)
	note := v.Check(frame.KindResult, "r1", SchemaAssistantReply, `{"answer":"hi"}`)
	if note.OK {
		t.Fatal("missing citations should fail")
	}
	if len(note.Errors) == 0 {
		t.Fatal("expected validator errors")
	}
}

func TestValidator_UnknownField(t *testing.T) {
	v := newTestValidator(t)
	note := v.Check(frame.KindResult, "r1", SchemaAssistantReply,
		`{"answer":"hi","citations":[],"extra":1}`)
	if note.OK {
		t.Fatal("unknown field should fail")
	}
}

func TestValidator_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)
	note := v.Check(frame.KindObject, "o1", "NoSuchSchema", `{}`)
	if note.OK {
		t.Fatal("unknown schema must record failure")
	}
}

func TestValidator_InvalidJSON(t *testing.T) {
	v := newTestValidator(t)
	note := v.Check(frame.KindObject, "o1", "Action", `{"type":"search",`)
	if note.OK {
		t.Fatal("truncated JSON must record failure")
	}
}

func TestValidator_ActionUnion(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{"search valid", `{"type":"search","query":"pizza"}`, true},
		{"search with bounds", `{"type":"search","query":"pizza","limit":5}`, true},
		{"search limit too high", `{"type":"search","query":"pizza","limit":100}`, false},
		{"search empty filters", `{"type":"search","query":"pizza","filters":[]}`, false},
		{"search missing query", `{"type":"search"}`, false},
		{"book valid", `{"type":"book","place_id":"p1","time":"19:00"}`, true},
		{"book party too big", `{"type":"book","place_id":"p1","time":"19:00","party_size":50}`, false},
		{"bad discriminant", `{"type":"cancel"}`, false},
		{"mixed variant fields", `{"type":"book","query":"pizza"}`, false},
	}

	for _, tc := range cases {
		note := v.Check(frame.KindObject, "o-"+tc.name, "Action", tc.body)
		if note.OK != tc.ok {
			t.Fatalf("%s: ok=%v want %v (errors: %v)", tc.name, note.OK, tc.ok, note.Errors)
		}
	}
}

func TestValidator_ObservationEnum(t *testing.T) {
	v := newTestValidator(t)
	if note := v.Check(frame.KindObject, "o1", "Observation", `{"status":"open","score":0.9}`); !note.OK {
		t.Fatalf("expected ok: %v", note.Errors)
	}
	if note := v.Check(frame.KindObject, "o2", "Observation", `{"status":"maybe"}`); note.OK {
		t.Fatal("enum violation should fail")
	}
	if note := v.Check(frame.KindObject, "o3", "Observation", `{"status":"open","tags":[]}`); note.OK {
		t.Fatal("minItems violation should fail")
	}
}

func TestValidator_Counts(t *testing.T) {
	v := newTestValidator(t)
	v.Check(frame.KindObject, "o1", "Action", `{"type":"search","query":"pizza"}`)
	v.Check(frame.KindObject, "o2", "Action", `{"type":"nope"}`)
	v.Check(frame.KindResult, "r1", SchemaAssistantReply, `{"answer":"","citations":[]}`)
	v.Check(frame.KindResult, "r2", SchemaAssistantReply, `{}`)

	c := v.Counts()
	if c.OKJSON != 1 || c.BadJSON != 1 || c.OKResult != 1 || c.BadResult != 1 {
		t.Fatalf("counts = %+v", c)
	}
}

func TestValidator_NoteFor(t *testing.T) {
	v := newTestValidator(t)
	v.Check(frame.KindResult, "r1", SchemaAssistantReply, `{}`)
	v.Check(frame.KindResult, "r1", SchemaAssistantReply, `{"answer":"","citations":[]}`)

	note, ok := v.NoteFor("r1")
	if !ok || !note.OK {
		t.Fatalf("NoteFor should return the latest note, got %+v ok=%v", note, ok)
	}
	if _, ok := v.NoteFor("missing"); ok {
		t.Fatal("missing id should not resolve")
	}
}
