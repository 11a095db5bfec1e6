package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPaymentStatusPaid is the storefront's payment status for a confirmed order.
const OrderPaymentStatusPaid = "paid"

// Order is the settlement view of a storefront order. The storefront owns the
// row; settlement only writes CommissionAmount back.
type Order struct {
	ID               uuid.UUID
	SellerID         uuid.UUID
	TotalAmount      decimal.Decimal
	CommissionAmount decimal.Decimal
	PaymentStatus    string
	PaidAt           *time.Time
}

// IsPaid reports whether the order's payment is confirmed
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == OrderPaymentStatusPaid
}

// OrderRepository is the port onto storefront orders.
type OrderRepository interface {
	// FindByID returns ErrOrderNotFound when the order does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// UpdateCommissionAmount writes the computed commission onto the order
	UpdateCommissionAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	// FindSellersWithPaidOrders lists distinct sellers with orders paid inside the period
	FindSellersWithPaidOrders(ctx context.Context, period Period) ([]uuid.UUID, error)
}
