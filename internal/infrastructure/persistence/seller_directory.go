package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appsettlement "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSellerDirectory reads seller contact details from the storefront sellers table
type GormSellerDirectory struct {
	db *gorm.DB
}

// NewGormSellerDirectory creates a new GormSellerDirectory
func NewGormSellerDirectory(db *gorm.DB) *GormSellerDirectory {
	return &GormSellerDirectory{db: db}
}

// FindContact returns nil without error when the seller row does not exist
func (d *GormSellerDirectory) FindContact(ctx context.Context, sellerID uuid.UUID) (*appsettlement.SellerContact, error) {
	var model models.SellerModel
	err := d.db.WithContext(ctx).
		Select("id", "email", "business_name", "contact_name").
		First(&model, "id = ?", sellerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appsettlement.SellerContact{
		SellerID: model.ID,
		Email:    model.Email,
		Name:     model.DisplayName(),
	}, nil
}

var _ appsettlement.SellerDirectory = (*GormSellerDirectory)(nil)
