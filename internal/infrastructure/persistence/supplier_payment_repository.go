package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSupplierPaymentRepository implements settlement.SupplierPaymentRepository using GORM
type GormSupplierPaymentRepository struct {
	db *gorm.DB
}

// NewGormSupplierPaymentRepository creates a new GormSupplierPaymentRepository
func NewGormSupplierPaymentRepository(db *gorm.DB) *GormSupplierPaymentRepository {
	return &GormSupplierPaymentRepository{db: db}
}

// FindByID finds a supplier payment by its ID
func (r *GormSupplierPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.SupplierPayment, error) {
	var model models.SupplierPaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists payments matching the filter, newest period first
func (r *GormSupplierPaymentRepository) FindAll(ctx context.Context, filter settlement.SupplierPaymentFilter) ([]settlement.SupplierPayment, error) {
	page := filter.Page.Normalize()
	var rows []models.SupplierPaymentModel
	err := paginate(r.applyFilter(r.db.WithContext(ctx), filter), page.Page, page.PageSize).
		Order(supplierPaymentSort.orderClause(page)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// Count counts payments matching the filter
func (r *GormSupplierPaymentRepository) Count(ctx context.Context, filter settlement.SupplierPaymentFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx), filter).Count(&count).Error
	return count, err
}

func (r *GormSupplierPaymentRepository) applyFilter(db *gorm.DB, filter settlement.SupplierPaymentFilter) *gorm.DB {
	q := db.Model(&models.SupplierPaymentModel{})
	if filter.SellerID != nil {
		q = q.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

// ExistsActiveForSellerPeriod reports whether a pending, processing or
// completed payment already covers the seller and period
func (r *GormSupplierPaymentRepository) ExistsActiveForSellerPeriod(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SupplierPaymentModel{}).
		Where("seller_id = ? AND payment_period_start = ? AND payment_period_end = ?", sellerID, period.Start, period.End).
		Where("status <> ?", settlement.PaymentStatusFailed).
		Count(&count).Error
	return count > 0, err
}

// FindCompletedWithUnsettledCommissions finds completed payments that still
// have claimed commissions in calculated status. Commissions the payment never
// claimed are not its concern.
func (r *GormSupplierPaymentRepository) FindCompletedWithUnsettledCommissions(ctx context.Context) ([]settlement.SupplierPayment, error) {
	unsettled := r.db.Model(&models.CommissionModel{}).
		Select("1").
		Where("commissions.supplier_payment_id = supplier_payments.id").
		Where("commissions.status = ?", settlement.CommissionStatusCalculated)

	var rows []models.SupplierPaymentModel
	err := r.db.WithContext(ctx).
		Where("status = ?", settlement.PaymentStatusCompleted).
		Where("EXISTS (?)", unsettled).
		Order("paid_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// Save creates or updates a supplier payment. The partial unique index on
// seller and period turns a second active payment into ErrPaymentAlreadyExists.
func (r *GormSupplierPaymentRepository) Save(ctx context.Context, p *settlement.SupplierPayment) error {
	err := r.db.WithContext(ctx).Save(models.SupplierPaymentModelFromDomain(p)).Error
	if isUniqueViolation(err) {
		return settlement.ErrPaymentAlreadyExists
	}
	return err
}

func paymentsToDomain(rows []models.SupplierPaymentModel) []settlement.SupplierPayment {
	out := make([]settlement.SupplierPayment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ settlement.SupplierPaymentRepository = (*GormSupplierPaymentRepository)(nil)
