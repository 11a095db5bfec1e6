package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCommissionRepository implements settlement.CommissionRepository using GORM
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewGormCommissionRepository creates a new GormCommissionRepository
func NewGormCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// FindByID finds a commission by its ID
func (r *GormCommissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Commission, error) {
	var model models.CommissionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrCommissionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderID finds the commission recorded for an order
func (r *GormCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*settlement.Commission, error) {
	var model models.CommissionModel
	if err := r.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrCommissionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCalculatedBySeller returns the seller's unclaimed calculated commissions
// whose calculated_at falls in [period.Start, period.End)
func (r *GormCommissionRepository) FindCalculatedBySeller(ctx context.Context, sellerID uuid.UUID, period settlement.Period) ([]settlement.Commission, error) {
	var rows []models.CommissionModel
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND status = ?", sellerID, settlement.CommissionStatusCalculated).
		Where("calculated_at >= ? AND calculated_at < ?", period.Start, period.End).
		Where("supplier_payment_id IS NULL").
		Order("calculated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return commissionsToDomain(rows), nil
}

// FindAll lists commissions matching the filter, newest first unless the page sorts otherwise
func (r *GormCommissionRepository) FindAll(ctx context.Context, filter settlement.CommissionFilter) ([]settlement.Commission, error) {
	page := filter.Page.Normalize()
	var rows []models.CommissionModel
	err := paginate(r.applyFilter(r.db.WithContext(ctx), filter), page.Page, page.PageSize).
		Order(commissionSort.orderClause(page)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return commissionsToDomain(rows), nil
}

// Count counts commissions matching the filter
func (r *GormCommissionRepository) Count(ctx context.Context, filter settlement.CommissionFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx), filter).Count(&count).Error
	return count, err
}

func (r *GormCommissionRepository) applyFilter(db *gorm.DB, filter settlement.CommissionFilter) *gorm.DB {
	q := db.Model(&models.CommissionModel{})
	if filter.SellerID != nil {
		q = q.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

// Create inserts a new commission. A second commission for the same order
// violates the order_id unique index and returns ErrCommissionAlreadyRecorded.
func (r *GormCommissionRepository) Create(ctx context.Context, c *settlement.Commission) error {
	err := r.db.WithContext(ctx).Create(models.CommissionModelFromDomain(c)).Error
	if isUniqueViolation(err) {
		return settlement.ErrCommissionAlreadyRecorded
	}
	return err
}

// Save updates an existing commission
func (r *GormCommissionRepository) Save(ctx context.Context, c *settlement.Commission) error {
	return r.db.WithContext(ctx).Save(models.CommissionModelFromDomain(c)).Error
}

// ClaimForPayment links unclaimed calculated commissions to a payment.
// Rows already claimed elsewhere are skipped, so the count can come back short.
func (r *GormCommissionRepository) ClaimForPayment(ctx context.Context, paymentID uuid.UUID, commissionIDs []uuid.UUID) (int64, error) {
	if len(commissionIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.CommissionModel{}).
		Where("id IN ?", commissionIDs).
		Where("status = ? AND supplier_payment_id IS NULL", settlement.CommissionStatusCalculated).
		Update("supplier_payment_id", paymentID)
	return result.RowsAffected, result.Error
}

// ReleaseFromPayment unlinks the payment's calculated commissions so a later
// payment can claim them
func (r *GormCommissionRepository) ReleaseFromPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CommissionModel{}).
		Where("supplier_payment_id = ? AND status = ?", paymentID, settlement.CommissionStatusCalculated).
		Update("supplier_payment_id", nil)
	return result.RowsAffected, result.Error
}

// MarkPaidByPayment flips the calculated commissions claimed by the payment to
// paid and returns how many rows changed
func (r *GormCommissionRepository) MarkPaidByPayment(ctx context.Context, paymentID uuid.UUID, reference string, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CommissionModel{}).
		Where("supplier_payment_id = ? AND status = ?", paymentID, settlement.CommissionStatusCalculated).
		Updates(map[string]any{
			"status":            settlement.CommissionStatusPaid,
			"paid_at":           paidAt,
			"payment_reference": reference,
			"updated_at":        paidAt,
		})
	return result.RowsAffected, result.Error
}

func commissionsToDomain(rows []models.CommissionModel) []settlement.Commission {
	out := make([]settlement.Commission, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ settlement.CommissionRepository = (*GormCommissionRepository)(nil)
