package service

import "github.com/framegate/framegate/internal/domain/schema"

// Metrics summarizes one session for the metrics artifact and the
// session store.
type Metrics struct {
	TotalMs       int64         `json:"totalMs"`
	ToolLatencyMs *int64        `json:"toolLatencyMs,omitempty"`
	Model         string        `json:"model"`
	Validation    schema.Counts `json:"validation"`
	Degraded      bool          `json:"degraded"`
}
