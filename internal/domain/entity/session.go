package entity

import "time"

// SessionRecord is the durable summary of one completed stream:
// what was asked, how it ended and what it cost. The live stream never
// reads these; they exist for inspection and replay tooling.
type SessionRecord struct {
	ID             string
	Prompt         string
	Mode           string
	IdempotencyKey string
	Model          string
	TotalMs        int64
	ToolLatencyMs  *int64
	OKJSON         int
	BadJSON        int
	OKResult       int
	BadResult      int
	Degraded       bool
	CreatedAt      time.Time
}
