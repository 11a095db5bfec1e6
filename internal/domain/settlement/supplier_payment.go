package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zetta/backend/internal/domain/shared"
)

// PaymentStatus is the lifecycle state of a supplier payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// IsValid checks if the status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// IsFinal reports whether the payment can no longer change
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// ---------------------------------------------------------------------------
// PayoutSummary
// ---------------------------------------------------------------------------

// PayoutSummary is the aggregate of one seller's calculated commissions over a period.
type PayoutSummary struct {
	SellerID        uuid.UUID
	Period          Period
	TotalSales      decimal.Decimal
	TotalCommission decimal.Decimal
	PayoutAmount    decimal.Decimal
	OrderCount      int
	Commissions     []Commission
}

// SummarizeCommissions sums order amounts, commissions and payouts as three
// independent columns and rounds each total once at the end.
func SummarizeCommissions(sellerID uuid.UUID, period Period, commissions []Commission) PayoutSummary {
	sales, commission, payout := decimal.Zero, decimal.Zero, decimal.Zero
	for _, c := range commissions {
		sales = sales.Add(c.OrderAmount)
		commission = commission.Add(c.CommissionAmount)
		payout = payout.Add(c.SellerPayout)
	}
	if commissions == nil {
		commissions = []Commission{}
	}
	return PayoutSummary{
		SellerID:        sellerID,
		Period:          period,
		TotalSales:      sales.Round(2),
		TotalCommission: commission.Round(2),
		PayoutAmount:    payout.Round(2),
		OrderCount:      len(commissions),
		Commissions:     commissions,
	}
}

// ---------------------------------------------------------------------------
// SupplierPayment Aggregate Root
// ---------------------------------------------------------------------------

// SupplierPayment batches one seller's payouts for a period.
type SupplierPayment struct {
	shared.AggregateRoot
	SellerID           uuid.UUID
	PaymentPeriodStart time.Time
	PaymentPeriodEnd   time.Time
	TotalSales         decimal.Decimal
	TotalCommission    decimal.Decimal
	PayoutAmount       decimal.Decimal
	OrderCount         int
	Status             PaymentStatus
	PaymentMethod      string
	PaymentReference   string
	PaidAt             *time.Time
	FailureReason      string
}

// NewSupplierPayment creates a pending payment from a payout summary.
// An empty summary is rejected with ErrNoOrdersInPeriod.
func NewSupplierPayment(summary PayoutSummary) (*SupplierPayment, error) {
	if summary.SellerID == uuid.Nil {
		return nil, ErrInvalidSellerID
	}
	if summary.OrderCount == 0 {
		return nil, ErrNoOrdersInPeriod
	}
	return &SupplierPayment{
		AggregateRoot:      shared.NewAggregateRoot(),
		SellerID:           summary.SellerID,
		PaymentPeriodStart: summary.Period.Start,
		PaymentPeriodEnd:   summary.Period.End,
		TotalSales:         summary.TotalSales,
		TotalCommission:    summary.TotalCommission,
		PayoutAmount:       summary.PayoutAmount,
		OrderCount:         summary.OrderCount,
		Status:             PaymentStatusPending,
	}, nil
}

// Period returns the payment's aggregation window
func (p *SupplierPayment) Period() Period {
	return Period{Start: p.PaymentPeriodStart, End: p.PaymentPeriodEnd}
}

// StartProcessing marks the payout as handed to the payment rail.
func (p *SupplierPayment) StartProcessing(at time.Time) error {
	if p.Status != PaymentStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusProcessing
	p.Touch(at)
	return nil
}

// Complete records a successful payout and queues SupplierPaymentCompletedEvent.
func (p *SupplierPayment) Complete(method, reference string, at time.Time) error {
	if p.Status.IsFinal() {
		return ErrInvalidTransition
	}
	if method == "" {
		return ErrPaymentMethodRequired
	}
	if reference == "" {
		return ErrPaymentReferenceRequired
	}
	p.Status = PaymentStatusCompleted
	p.PaymentMethod = method
	p.PaymentReference = reference
	p.PaidAt = &at
	p.Touch(at)

	p.AddDomainEvent(NewSupplierPaymentCompletedEvent(p))
	return nil
}

// Fail records a failed payout.
func (p *SupplierPayment) Fail(reason string, at time.Time) error {
	if p.Status.IsFinal() {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.Touch(at)
	return nil
}
