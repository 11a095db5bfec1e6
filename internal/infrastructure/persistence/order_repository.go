package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements settlement.OrderRepository against the storefront orders table
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateCommissionAmount writes the commission onto the order row
func (r *GormOrderRepository) UpdateCommissionAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Update("commission_amount", amount)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return settlement.ErrOrderNotFound
	}
	return nil
}

// FindSellersWithPaidOrders lists distinct sellers with an order paid in the period
func (r *GormOrderRepository) FindSellersWithPaidOrders(ctx context.Context, period settlement.Period) ([]uuid.UUID, error) {
	var sellers []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Distinct("seller_id").
		Where("payment_status = ?", settlement.OrderPaymentStatusPaid).
		Where("paid_at >= ? AND paid_at < ?", period.Start, period.End).
		Pluck("seller_id", &sellers).Error
	return sellers, err
}

var _ settlement.OrderRepository = (*GormOrderRepository)(nil)
