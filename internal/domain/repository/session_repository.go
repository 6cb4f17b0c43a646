package repository

import (
	"context"

	"github.com/framegate/framegate/internal/domain/entity"
)

// SessionRepository stores completed session records.
type SessionRepository interface {
	// Save persists a session record.
	Save(ctx context.Context, record *entity.SessionRecord) error

	// FindByID returns one session record.
	FindByID(ctx context.Context, id string) (*entity.SessionRecord, error)

	// List returns recent records, newest first.
	List(ctx context.Context, limit, offset int) ([]*entity.SessionRecord, error)

	// CountDegraded counts stored sessions that ended degraded.
	CountDegraded(ctx context.Context) (int64, error)
}
