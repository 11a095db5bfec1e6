package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCommissionRate is the platform cut applied when no other rate is configured.
var DefaultCommissionRate = decimal.RequireFromString("0.15")

// ---------------------------------------------------------------------------
// CommissionStatus
// ---------------------------------------------------------------------------

// CommissionStatus is the lifecycle state of a commission
type CommissionStatus string

const (
	CommissionStatusPending    CommissionStatus = "pending"
	CommissionStatusCalculated CommissionStatus = "calculated"
	CommissionStatusPaid       CommissionStatus = "paid"
	CommissionStatusFailed     CommissionStatus = "failed"
)

// IsValid checks if the status is a known value
func (s CommissionStatus) IsValid() bool {
	switch s {
	case CommissionStatusPending, CommissionStatusCalculated, CommissionStatusPaid, CommissionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s CommissionStatus) IsTerminal() bool {
	return s == CommissionStatusPaid || s == CommissionStatusFailed
}

// CanTransitionTo enforces pending -> calculated -> paid, with failed
// reachable from any non-terminal state.
func (s CommissionStatus) CanTransitionTo(next CommissionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case CommissionStatusCalculated:
		return s == CommissionStatusPending
	case CommissionStatusPaid:
		return s == CommissionStatusCalculated
	case CommissionStatusFailed:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Commission arithmetic
// ---------------------------------------------------------------------------

// CommissionBreakdown splits an order amount between platform and seller.
type CommissionBreakdown struct {
	CommissionAmount decimal.Decimal
	SellerPayout     decimal.Decimal
}

// ComputeCommission rounds the platform cut half-up to cents and gives the
// seller the remainder of the cent-rounded order amount, so the two parts
// always add back to it. orderAmount is not validated here.
func ComputeCommission(orderAmount, rate decimal.Decimal) CommissionBreakdown {
	commission := orderAmount.Mul(rate).Round(2)
	return CommissionBreakdown{
		CommissionAmount: commission,
		SellerPayout:     orderAmount.Round(2).Sub(commission),
	}
}

// ValidateRate checks that rate is a fraction in [0, 1].
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidCommissionRate
	}
	return nil
}

// ---------------------------------------------------------------------------
// Commission Entity
// ---------------------------------------------------------------------------

// Commission records the platform's cut of one paid order.
type Commission struct {
	// ID is the unique identifier of this commission
	ID uuid.UUID
	// OrderID is the order this commission was taken from (1:1)
	OrderID uuid.UUID
	// SellerID is the seller who fulfilled the order
	SellerID uuid.UUID
	// OrderAmount is the order total the commission is based on
	OrderAmount decimal.Decimal
	// CommissionRate is the fraction of OrderAmount kept by the platform
	CommissionRate decimal.Decimal
	// CommissionAmount is OrderAmount x CommissionRate rounded to cents
	CommissionAmount decimal.Decimal
	// SellerPayout is what the seller is owed for this order
	SellerPayout decimal.Decimal
	// Status is the lifecycle state
	Status CommissionStatus
	// CalculatedAt is when the amounts were computed; used for period aggregation
	CalculatedAt *time.Time
	// PaidAt is when the supplier payment covering this commission completed
	PaidAt *time.Time
	// SupplierPaymentID is the payment that claimed this commission for payout.
	// Nil until a payment is created, and cleared again if that payment fails.
	SupplierPaymentID *uuid.UUID
	// PaymentReference is copied from the supplier payment that paid it
	PaymentReference string
	// FailureReason explains a failed commission
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCommission creates a pending commission for an order.
func NewCommission(orderID, sellerID uuid.UUID, orderAmount, rate decimal.Decimal) (*Commission, error) {
	if orderID == uuid.Nil {
		return nil, ErrInvalidOrderID
	}
	if sellerID == uuid.Nil {
		return nil, ErrInvalidSellerID
	}
	if orderAmount.IsNegative() {
		return nil, ErrNegativeOrderAmount
	}
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Commission{
		ID:             uuid.New(),
		OrderID:        orderID,
		SellerID:       sellerID,
		OrderAmount:    orderAmount,
		CommissionRate: rate,
		Status:         CommissionStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Calculate computes the split and moves the commission to calculated.
func (c *Commission) Calculate(at time.Time) error {
	if !c.Status.CanTransitionTo(CommissionStatusCalculated) {
		return ErrInvalidTransition
	}
	b := ComputeCommission(c.OrderAmount, c.CommissionRate)
	c.CommissionAmount = b.CommissionAmount
	c.SellerPayout = b.SellerPayout
	c.Status = CommissionStatusCalculated
	c.CalculatedAt = &at
	c.UpdatedAt = at
	return nil
}

// MarkPaid settles the commission under a supplier payment reference.
func (c *Commission) MarkPaid(reference string, at time.Time) error {
	if !c.Status.CanTransitionTo(CommissionStatusPaid) {
		return ErrInvalidTransition
	}
	if reference == "" {
		return ErrPaymentReferenceRequired
	}
	c.Status = CommissionStatusPaid
	c.PaymentReference = reference
	c.PaidAt = &at
	c.UpdatedAt = at
	return nil
}

// MarkFailed moves the commission to failed.
func (c *Commission) MarkFailed(reason string, at time.Time) error {
	if !c.Status.CanTransitionTo(CommissionStatusFailed) {
		return ErrInvalidTransition
	}
	c.Status = CommissionStatusFailed
	c.FailureReason = reason
	c.UpdatedAt = at
	return nil
}
