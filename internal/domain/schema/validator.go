package schema

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/frame"
)

// Note records the validation outcome of one completed frame.
// Notes are append-only; repair decisions and metrics read them.
type Note struct {
	ID     string     `json:"id"`
	Schema string     `json:"schema"`
	Kind   frame.Kind `json:"kind"`
	OK     bool       `json:"ok"`
	Errors []string   `json:"errors,omitempty"`
}

// Counts aggregates per-kind validation outcomes for SessionMetrics.
type Counts struct {
	OKJSON    int `json:"okJson"`
	BadJSON   int `json:"badJson"`
	OKResult  int `json:"okResult"`
	BadResult int `json:"badResult"`
}

// Validator checks completed Object/Result frame bodies against the
// named schema and appends a Note per frame. One validator per
// session; notes never mutate the stream.
type Validator struct {
	registry *Registry
	notes    []Note
	logger   *zap.Logger
}

// NewValidator creates a per-session validator over the shared registry.
func NewValidator(registry *Registry, logger *zap.Logger) *Validator {
	return &Validator{
		registry: registry,
		logger:   logger.With(zap.String("component", "validator")),
	}
}

// Check validates body against schemaName and appends the resulting
// Note. Unknown schema names and unparseable bodies record failures.
func (v *Validator) Check(kind frame.Kind, id, schemaName, body string) Note {
	note := Note{ID: id, Schema: schemaName, Kind: kind}

	compiled, ok := v.registry.Lookup(schemaName)
	if !ok {
		note.Errors = []string{"unknown schema: " + schemaName}
		return v.append(note)
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		note.Errors = []string{"invalid JSON: " + err.Error()}
		return v.append(note)
	}

	if err := compiled.Validate(doc); err != nil {
		note.Errors = flattenValidationError(err)
		return v.append(note)
	}

	note.OK = true
	return v.append(note)
}

func (v *Validator) append(note Note) Note {
	if !note.OK {
		v.logger.Debug("Frame failed validation",
			zap.String("frame_id", note.ID),
			zap.String("schema", note.Schema),
			zap.Strings("errors", note.Errors),
		)
	}
	v.notes = append(v.notes, note)
	return note
}

// Notes returns all recorded notes in frame completion order.
func (v *Validator) Notes() []Note {
	return v.notes
}

// NoteFor returns the most recent note for a frame id.
func (v *Validator) NoteFor(id string) (Note, bool) {
	for i := len(v.notes) - 1; i >= 0; i-- {
		if v.notes[i].ID == id {
			return v.notes[i], true
		}
	}
	return Note{}, false
}

// Counts tallies the notes by kind and outcome.
func (v *Validator) Counts() Counts {
	var c Counts
	for _, n := range v.notes {
		switch n.Kind {
		case frame.KindObject:
			if n.OK {
				c.OKJSON++
			} else {
				c.BadJSON++
			}
		case frame.KindResult:
			if n.OK {
				c.OKResult++
			} else {
				c.BadResult++
			}
		}
	}
	return c
}

// flattenValidationError turns the validator's multi-line error report
// into one message per line.
func flattenValidationError(err error) []string {
	lines := strings.Split(err.Error(), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(strings.TrimPrefix(l, "- ")); s != "" {
			out = append(out, s)
		}
	}
	return out
}
