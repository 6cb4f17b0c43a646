package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/framegate/framegate/internal/domain/entity"
	"github.com/framegate/framegate/internal/domain/repository"
	"github.com/framegate/framegate/internal/infrastructure/persistence/models"
	apperrors "github.com/framegate/framegate/pkg/errors"
)

// GormSessionRepository persists session records with GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

var _ repository.SessionRepository = (*GormSessionRepository)(nil)

// NewGormSessionRepository creates the GORM-backed repository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Save persists a session record.
func (r *GormSessionRepository) Save(ctx context.Context, record *entity.SessionRecord) error {
	if err := r.db.WithContext(ctx).Save(toModel(record)).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "save session record", err)
	}
	return nil
}

// FindByID returns one session record.
func (r *GormSessionRepository) FindByID(ctx context.Context, id string) (*entity.SessionRecord, error) {
	var model models.SessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "session not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "find session record", err)
	}
	return toEntity(&model), nil
}

// List returns recent records, newest first.
func (r *GormSessionRepository) List(ctx context.Context, limit, offset int) ([]*entity.SessionRecord, error) {
	var rows []models.SessionModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "list session records", err)
	}

	records := make([]*entity.SessionRecord, 0, len(rows))
	for i := range rows {
		records = append(records, toEntity(&rows[i]))
	}
	return records, nil
}

// CountDegraded counts stored sessions that ended degraded.
func (r *GormSessionRepository) CountDegraded(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("degraded = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, "count degraded sessions", err)
	}
	return count, nil
}

func toModel(record *entity.SessionRecord) *models.SessionModel {
	return &models.SessionModel{
		ID:             record.ID,
		Prompt:         record.Prompt,
		Mode:           record.Mode,
		IdempotencyKey: record.IdempotencyKey,
		Model:          record.Model,
		TotalMs:        record.TotalMs,
		ToolLatencyMs:  record.ToolLatencyMs,
		OKJSON:         record.OKJSON,
		BadJSON:        record.BadJSON,
		OKResult:       record.OKResult,
		BadResult:      record.BadResult,
		Degraded:       record.Degraded,
		CreatedAt:      record.CreatedAt,
	}
}

func toEntity(model *models.SessionModel) *entity.SessionRecord {
	return &entity.SessionRecord{
		ID:             model.ID,
		Prompt:         model.Prompt,
		Mode:           model.Mode,
		IdempotencyKey: model.IdempotencyKey,
		Model:          model.Model,
		TotalMs:        model.TotalMs,
		ToolLatencyMs:  model.ToolLatencyMs,
		OKJSON:         model.OKJSON,
		BadJSON:        model.BadJSON,
		OKResult:       model.OKResult,
		BadResult:      model.BadResult,
		Degraded:       model.Degraded,
		CreatedAt:      model.CreatedAt,
	}
}
