package repair

import (
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/frame"
	"github.com/framegate/framegate/internal/domain/schema"
)

func newRepairer(t *testing.T) (*Repairer, *schema.Registry) {
	t.Helper()
	reg, err := schema.NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("builtin registry: %v", err)
	}
	return NewRepairer(reg, zap.NewNop()), reg
}

func TestRepair_SyntacticFixSalvagesBody(t *testing.T) {
	r, reg := newRepairer(t)

	// Trailing comma: invalid JSON, but structurally a valid reply.
	raw := `{"answer":"hi","citations":["a"],}`
	note := schema.Note{ID: "r1", Schema: schema.SchemaAssistantReply, Kind: frame.KindResult,
		Errors: []string{"invalid JSON"}}

	out := r.Repair(note, raw)
	if !out.Repaired {
		t.Fatalf("expected syntactic repair, got fallback: %s", out.Body)
	}

	compiled, _ := reg.Lookup(schema.SchemaAssistantReply)
	var doc any
	if err := json.Unmarshal([]byte(out.Body), &doc); err != nil {
		t.Fatalf("repaired body not JSON: %v", err)
	}
	if err := compiled.Validate(doc); err != nil {
		t.Fatalf("repaired body invalid: %v", err)
	}
}

func TestRepair_SchemaInvalidBodyFallsBack(t *testing.T) {
	r, reg := newRepairer(t)

	// Well-formed JSON that violates the schema: repair cannot save it.
	raw := `{"greeting":"hello"}`
	note := schema.Note{ID: "r1", Schema: schema.SchemaAssistantReply, Kind: frame.KindResult,
		Errors: []string{"missing properties 'answer', 'citations'"}}

	out := r.Repair(note, raw)
	if out.Repaired {
		t.Fatal("schema-invalid body must not count as repaired")
	}
	if !strings.Contains(out.Body, "schema_repair_failed") {
		t.Fatalf("fallback body missing marker: %s", out.Body)
	}
	if !strings.Contains(out.Body, "missing properties") {
		t.Fatalf("fallback body should carry validator errors: %s", out.Body)
	}

	compiled, _ := reg.Lookup(schema.SchemaAssistantReply)
	var doc any
	if err := json.Unmarshal([]byte(out.Body), &doc); err != nil {
		t.Fatalf("fallback not JSON: %v", err)
	}
	if err := compiled.Validate(doc); err != nil {
		t.Fatalf("minimal fallback must validate: %v", err)
	}
}

func TestMinimalReply_AlwaysValid(t *testing.T) {
	_, reg := newRepairer(t)
	compiled, _ := reg.Lookup(schema.SchemaAssistantReply)

	for _, errs := range [][]string{nil, {}, {"a", "b"}} {
		body := MinimalReply(errs)
		var doc any
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			t.Fatalf("minimal reply not JSON: %v", err)
		}
		if err := compiled.Validate(doc); err != nil {
			t.Fatalf("minimal reply invalid: %v", err)
		}
	}
}

func TestFallbackReply_CarriesModel(t *testing.T) {
	_, reg := newRepairer(t)
	body := FallbackReply("test-model")
	if !strings.Contains(body, "provider_no_result") || !strings.Contains(body, "test-model") {
		t.Fatalf("fallback = %s", body)
	}
	compiled, _ := reg.Lookup(schema.SchemaAssistantReply)
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("fallback not JSON: %v", err)
	}
	if err := compiled.Validate(doc); err != nil {
		t.Fatalf("fallback invalid: %v", err)
	}
}
