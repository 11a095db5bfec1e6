package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// All returns every model for AutoMigrate in tests and local development.
// Production schemas come from the SQL migrations.
func All() []any {
	return []any{
		&SellerModel{},
		&OrderModel{},
		&CommissionModel{},
		&SupplierPaymentModel{},
		&ProductModel{},
		&CatalogSyncConfigModel{},
		&SyncLogModel{},
		&WebhookEventModel{},
	}
}
