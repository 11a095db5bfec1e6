package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncConfigRepository implements catalogsync.SyncConfigRepository using GORM
type GormSyncConfigRepository struct {
	db *gorm.DB
}

// NewGormSyncConfigRepository creates a new GormSyncConfigRepository
func NewGormSyncConfigRepository(db *gorm.DB) *GormSyncConfigRepository {
	return &GormSyncConfigRepository{db: db}
}

// FindByID finds a sync config by its ID
func (r *GormSyncConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalogsync.CatalogSyncConfig, error) {
	var model models.CatalogSyncConfigModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalogsync.ErrSyncConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists configs matching the filter
func (r *GormSyncConfigRepository) FindAll(ctx context.Context, filter catalogsync.SyncConfigFilter) ([]catalogsync.CatalogSyncConfig, error) {
	page := filter.Page.Normalize()
	var rows []models.CatalogSyncConfigModel
	err := paginate(r.applyFilter(r.db.WithContext(ctx), filter), page.Page, page.PageSize).
		Order(syncConfigSort.orderClause(page)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return configsToDomain(rows), nil
}

// Count counts configs matching the filter
func (r *GormSyncConfigRepository) Count(ctx context.Context, filter catalogsync.SyncConfigFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx), filter).Count(&count).Error
	return count, err
}

func (r *GormSyncConfigRepository) applyFilter(db *gorm.DB, filter catalogsync.SyncConfigFilter) *gorm.DB {
	q := db.Model(&models.CatalogSyncConfigModel{})
	if filter.SellerID != nil {
		q = q.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SyncType != "" {
		q = q.Where("sync_type = ?", filter.SyncType)
	}
	return q
}

// FindDue returns active polled configs whose next_sync is at or before now, oldest first
func (r *GormSyncConfigRepository) FindDue(ctx context.Context, now time.Time) ([]catalogsync.CatalogSyncConfig, error) {
	var rows []models.CatalogSyncConfigModel
	err := r.db.WithContext(ctx).
		Where("status = ?", catalogsync.ConfigStatusActive).
		Where("sync_type <> ?", catalogsync.SyncTypeWebhook).
		Where("next_sync IS NOT NULL AND next_sync <= ?", now).
		Order("next_sync ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return configsToDomain(rows), nil
}

// Save creates or updates a config
func (r *GormSyncConfigRepository) Save(ctx context.Context, c *catalogsync.CatalogSyncConfig) error {
	return r.db.WithContext(ctx).Save(models.CatalogSyncConfigModelFromDomain(c)).Error
}

func configsToDomain(rows []models.CatalogSyncConfigModel) []catalogsync.CatalogSyncConfig {
	out := make([]catalogsync.CatalogSyncConfig, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ catalogsync.SyncConfigRepository = (*GormSyncConfigRepository)(nil)
