package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/shared"
)

// CommissionFilter narrows commission listings
type CommissionFilter struct {
	shared.Page
	SellerID *uuid.UUID
	Status   CommissionStatus
}

// CommissionReader defines read operations for commissions
type CommissionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Commission, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Commission, error)
	// FindCalculatedBySeller returns calculated commissions whose calculated_at
	// lies in the period and that no payment has claimed yet, oldest first
	FindCalculatedBySeller(ctx context.Context, sellerID uuid.UUID, period Period) ([]Commission, error)
	FindAll(ctx context.Context, filter CommissionFilter) ([]Commission, error)
	Count(ctx context.Context, filter CommissionFilter) (int64, error)
}

// CommissionWriter defines write operations for commissions
type CommissionWriter interface {
	// Create inserts a new commission; a second commission for the same order
	// fails with ErrCommissionAlreadyRecorded
	Create(ctx context.Context, commission *Commission) error
	Save(ctx context.Context, commission *Commission) error
	// ClaimForPayment links the given unclaimed calculated commissions to a
	// payment and returns how many rows changed
	ClaimForPayment(ctx context.Context, paymentID uuid.UUID, commissionIDs []uuid.UUID) (int64, error)
	// ReleaseFromPayment unlinks the payment's still calculated commissions
	ReleaseFromPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)
	// MarkPaidByPayment settles the calculated commissions claimed by the
	// payment and returns how many rows changed
	MarkPaidByPayment(ctx context.Context, paymentID uuid.UUID, reference string, paidAt time.Time) (int64, error)
}

// CommissionRepository combines reader and writer
type CommissionRepository interface {
	CommissionReader
	CommissionWriter
}

// SupplierPaymentFilter narrows payment listings
type SupplierPaymentFilter struct {
	shared.Page
	SellerID *uuid.UUID
	Status   PaymentStatus
}

// SupplierPaymentRepository persists supplier payments
type SupplierPaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SupplierPayment, error)
	FindAll(ctx context.Context, filter SupplierPaymentFilter) ([]SupplierPayment, error)
	Count(ctx context.Context, filter SupplierPaymentFilter) (int64, error)
	// ExistsActiveForSellerPeriod reports whether a payment that has not
	// failed already covers exactly this seller and period
	ExistsActiveForSellerPeriod(ctx context.Context, sellerID uuid.UUID, period Period) (bool, error)
	// FindCompletedWithUnsettledCommissions returns completed payments that
	// still have claimed commissions in calculated status
	FindCompletedWithUnsettledCommissions(ctx context.Context) ([]SupplierPayment, error)
	// Save creates or updates a payment. A second active payment for the same
	// seller and period fails with ErrPaymentAlreadyExists.
	Save(ctx context.Context, payment *SupplierPayment) error
}
