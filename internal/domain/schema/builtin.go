package schema

// SchemaAssistantReply is the name of the terminal reply schema.
const SchemaAssistantReply = "AssistantReply"

// builtinSchemas holds the JSON Schema documents compiled into every
// gateway registry. AssistantReply is the terminal reply contract;
// Action and Observation exercise unions, enums, bounds, defaulted
// fields and minimum array lengths.
var builtinSchemas = map[string]string{
	SchemaAssistantReply: `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["answer", "citations"],
		"properties": {
			"answer": {"type": "string"},
			"citations": {
				"type": "array",
				"items": {"type": "string"}
			},
			"diagnostics": {"type": "object"}
		},
		"additionalProperties": false
	}`,

	"Action": `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["type"],
		"properties": {
			"type": {"enum": ["search", "book"]}
		},
		"oneOf": [
			{
				"properties": {
					"type": {"const": "search"},
					"query": {"type": "string", "minLength": 1},
					"filters": {
						"type": "array",
						"items": {"type": "string"},
						"minItems": 1
					},
					"limit": {"type": "integer", "minimum": 1, "maximum": 50, "default": 5}
				},
				"required": ["type", "query"],
				"additionalProperties": false
			},
			{
				"properties": {
					"type": {"const": "book"},
					"place_id": {"type": "string", "minLength": 1},
					"time": {"type": "string", "minLength": 1},
					"party_size": {"type": "integer", "minimum": 1, "maximum": 20, "default": 2}
				},
				"required": ["type", "place_id", "time"],
				"additionalProperties": false
			}
		]
	}`,

	"Observation": `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"enum": ["open", "closed", "unknown"]},
			"score": {"type": "number", "minimum": 0, "maximum": 1},
			"tags": {
				"type": "array",
				"items": {"type": "string"},
				"minItems": 1
			}
		},
		"additionalProperties": false
	}`,
}
