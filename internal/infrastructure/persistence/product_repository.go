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

// GormProductRepository implements catalogsync.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindBySellerAndExternalID finds a seller's product by its source identity
func (r *GormProductRepository) FindBySellerAndExternalID(ctx context.Context, sellerID uuid.UUID, externalID string) (*catalogsync.Product, error) {
	var model models.ProductModel
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND external_id = ?", sellerID, externalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalogsync.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListListedExternalIDs returns the external ids of the seller's synced products
// that are still listed
func (r *GormProductRepository) ListListedExternalIDs(ctx context.Context, sellerID uuid.UUID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("seller_id = ? AND external_id IS NOT NULL", sellerID).
		Where("status NOT IN ?", []catalogsync.ProductStatus{catalogsync.ProductStatusSold, catalogsync.ProductStatusWithdrawn}).
		Order("external_id").
		Pluck("external_id", &ids).Error
	return ids, err
}

// Create inserts a product. A duplicate (seller_id, external_id) returns ErrProductExists.
func (r *GormProductRepository) Create(ctx context.Context, p *catalogsync.Product) error {
	err := r.db.WithContext(ctx).Create(models.ProductModelFromDomain(p)).Error
	if isUniqueViolation(err) {
		return catalogsync.ErrProductExists
	}
	return err
}

// Save updates an existing product
func (r *GormProductRepository) Save(ctx context.Context, p *catalogsync.Product) error {
	return r.db.WithContext(ctx).Save(models.ProductModelFromDomain(p)).Error
}

// SetStatusByExternalID changes the status of one synced product
func (r *GormProductRepository) SetStatusByExternalID(ctx context.Context, sellerID uuid.UUID, externalID string, status catalogsync.ProductStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("seller_id = ? AND external_id = ?", sellerID, externalID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalogsync.ErrProductNotFound
	}
	return nil
}

var _ catalogsync.ProductRepository = (*GormProductRepository)(nil)
