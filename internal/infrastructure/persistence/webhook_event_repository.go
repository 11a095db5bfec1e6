package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWebhookEventRepository implements catalogsync.WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Create stores a received event. A repeated delivery id for the same config
// returns ErrDuplicateWebhookEvent.
func (r *GormWebhookEventRepository) Create(ctx context.Context, e *catalogsync.WebhookEvent) error {
	err := r.db.WithContext(ctx).Create(models.WebhookEventModelFromDomain(e)).Error
	if isUniqueViolation(err) {
		return catalogsync.ErrDuplicateWebhookEvent
	}
	return err
}

// Save updates an event's processing outcome
func (r *GormWebhookEventRepository) Save(ctx context.Context, e *catalogsync.WebhookEvent) error {
	return r.db.WithContext(ctx).Save(models.WebhookEventModelFromDomain(e)).Error
}

// FindByID finds an event by its ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalogsync.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalogsync.ErrWebhookEventNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ConfigsWithUnprocessed lists configs with unhandled events, oldest backlog first
func (r *GormWebhookEventRepository) ConfigsWithUnprocessed(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("processed = ?", false).
		Group("config_id").
		Order("MIN(created_at) ASC").
		Pluck("config_id", &ids).Error
	return ids, err
}

// FindUnprocessedByConfig returns one config's unhandled events, oldest first
func (r *GormWebhookEventRepository) FindUnprocessedByConfig(ctx context.Context, configID uuid.UUID, limit int) ([]catalogsync.WebhookEvent, error) {
	var rows []models.WebhookEventModel
	err := r.db.WithContext(ctx).
		Where("config_id = ? AND processed = ?", configID, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]catalogsync.WebhookEvent, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var _ catalogsync.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
