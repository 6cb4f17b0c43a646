package models

import "time"

// SessionModel is the database row for a completed session.
type SessionModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	Prompt         string `gorm:"type:text"`
	Mode           string `gorm:"size:64;index"`
	IdempotencyKey string `gorm:"size:128"`
	Model          string `gorm:"size:128"`
	TotalMs        int64
	ToolLatencyMs  *int64
	OKJSON         int
	BadJSON        int
	OKResult       int
	BadResult      int
	Degraded       bool `gorm:"index"`
	CreatedAt      time.Time
}

// TableName pins the table name.
func (SessionModel) TableName() string {
	return "sessions"
}
