package repair

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/schema"
)

// Outcome describes how a failed reply was recovered. Either way the
// session is degraded; Repaired distinguishes a salvaged body from
// the minimal fallback.
type Outcome struct {
	Body     string // valid AssistantReply JSON to emit as a fresh Result frame
	Repaired bool   // true when the original body was salvaged syntactically
}

// Repairer produces a valid replacement for an AssistantReply frame
// that failed validation. It is invoked at most once per reply frame
// (REPAIR_RETRIES bound, enforced by the session controller); there
// is no second-order repair.
type Repairer struct {
	registry *schema.Registry
	logger   *zap.Logger
}

// NewRepairer creates a repairer over the shared schema registry.
func NewRepairer(registry *schema.Registry, logger *zap.Logger) *Repairer {
	return &Repairer{
		registry: registry,
		logger:   logger.With(zap.String("component", "repair")),
	}
}

// Repair attempts a syntactic fix of rawBody first; if the repaired
// document validates against AssistantReply it is used as-is.
// Otherwise it returns the minimal valid reply carrying the validator
// errors in diagnostics.
func (r *Repairer) Repair(note schema.Note, rawBody string) Outcome {
	if body, ok := r.trySyntacticRepair(rawBody); ok {
		r.logger.Info("Reply repaired syntactically",
			zap.String("frame_id", note.ID),
		)
		return Outcome{Body: body, Repaired: true}
	}

	r.logger.Warn("Reply repair fell back to minimal object",
		zap.String("frame_id", note.ID),
		zap.Strings("validator_errors", note.Errors),
	)
	return Outcome{Body: MinimalReply(note.Errors)}
}

// trySyntacticRepair runs jsonrepair over the raw body and revalidates.
func (r *Repairer) trySyntacticRepair(rawBody string) (string, bool) {
	repaired, err := jsonrepair.JSONRepair(rawBody)
	if err != nil {
		return "", false
	}

	compiled, ok := r.registry.Lookup(schema.SchemaAssistantReply)
	if !ok {
		return "", false
	}
	var doc any
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return "", false
	}
	if err := compiled.Validate(doc); err != nil {
		return "", false
	}
	return repaired, true
}

// MinimalReply builds the smallest valid AssistantReply carrying the
// failed validator output in diagnostics.
func MinimalReply(validatorErrors []string) string {
	serialized, _ := json.Marshal(validatorErrors)
	body, _ := json.Marshal(map[string]any{
		"answer":    "",
		"citations": []string{},
		"diagnostics": map[string]any{
			"error":                 "schema_repair_failed",
			"last_validator_errors": string(serialized),
		},
	})
	return string(body)
}

// FallbackReply builds the degraded reply emitted when the provider
// produced no Result frame at all.
func FallbackReply(model string) string {
	body, _ := json.Marshal(map[string]any{
		"answer":    "",
		"citations": []string{},
		"diagnostics": map[string]any{
			"error": "provider_no_result",
			"model": model,
		},
	})
	return string(body)
}
