package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncLogRepository implements catalogsync.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Create inserts a running log
func (r *GormSyncLogRepository) Create(ctx context.Context, l *catalogsync.SyncLog) error {
	return r.db.WithContext(ctx).Create(models.SyncLogModelFromDomain(l)).Error
}

// Finalize writes the terminal state. Only a log that is still running is
// updated; a completed log returns ErrSyncLogFinalized.
func (r *GormSyncLogRepository) Finalize(ctx context.Context, l *catalogsync.SyncLog) error {
	m := models.SyncLogModelFromDomain(l)
	result := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Where("id = ? AND completed_at IS NULL", l.ID).
		Updates(map[string]any{
			"status":           m.Status,
			"completed_at":     m.CompletedAt,
			"products_added":   m.ProductsAdded,
			"products_updated": m.ProductsUpdated,
			"products_removed": m.ProductsRemoved,
			"error_message":    m.ErrorMessage,
			"sync_data":        m.SyncData,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalogsync.ErrSyncLogFinalized
	}
	return nil
}

// FindByID finds a sync log by its ID
func (r *GormSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalogsync.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalogsync.ErrSyncLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists logs of a config, most recent run first
func (r *GormSyncLogRepository) FindAll(ctx context.Context, filter catalogsync.SyncLogFilter) ([]catalogsync.SyncLog, error) {
	page := filter.Page.Normalize()
	var rows []models.SyncLogModel
	err := paginate(r.applyFilter(r.db.WithContext(ctx), filter), page.Page, page.PageSize).
		Order(syncLogSort.orderClause(page)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]catalogsync.SyncLog, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Count counts logs matching the filter
func (r *GormSyncLogRepository) Count(ctx context.Context, filter catalogsync.SyncLogFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx), filter).Count(&count).Error
	return count, err
}

func (r *GormSyncLogRepository) applyFilter(db *gorm.DB, filter catalogsync.SyncLogFilter) *gorm.DB {
	q := db.Model(&models.SyncLogModel{})
	if filter.ConfigID != uuid.Nil {
		q = q.Where("config_id = ?", filter.ConfigID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

var _ catalogsync.SyncLogRepository = (*GormSyncLogRepository)(nil)
