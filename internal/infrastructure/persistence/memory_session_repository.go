package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/framegate/framegate/internal/domain/entity"
	"github.com/framegate/framegate/internal/domain/repository"
	apperrors "github.com/framegate/framegate/pkg/errors"
)

// MemorySessionRepository keeps session records in memory. Used in
// tests and when no database is configured.
type MemorySessionRepository struct {
	mu      sync.RWMutex
	records map[string]*entity.SessionRecord
}

var _ repository.SessionRepository = (*MemorySessionRepository)(nil)

// NewMemorySessionRepository creates an empty in-memory repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{records: make(map[string]*entity.SessionRecord)}
}

// Save persists a session record.
func (r *MemorySessionRepository) Save(ctx context.Context, record *entity.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

// FindByID returns one session record.
func (r *MemorySessionRepository) FindByID(ctx context.Context, id string) (*entity.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "session not found")
	}
	copied := *record
	return &copied, nil
}

// List returns recent records, newest first.
func (r *MemorySessionRepository) List(ctx context.Context, limit, offset int) ([]*entity.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*entity.SessionRecord, 0, len(r.records))
	for _, record := range r.records {
		copied := *record
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// CountDegraded counts stored sessions that ended degraded.
func (r *MemorySessionRepository) CountDegraded(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, record := range r.records {
		if record.Degraded {
			count++
		}
	}
	return count, nil
}
