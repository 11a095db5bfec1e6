package settlement

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zetta/backend/internal/domain/shared"
)

const (
	// AggregateTypeSupplierPayment is the aggregate type for supplier payment events
	AggregateTypeSupplierPayment = "SupplierPayment"

	// EventTypeSupplierPaymentCompleted is published once a payout has been made
	EventTypeSupplierPaymentCompleted = "settlement.supplier_payment.completed"
)

// SupplierPaymentCompletedEvent carries what a seller needs to know about a payout.
type SupplierPaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentReference string          `json:"payment_reference"`
	PaymentMethod    string          `json:"payment_method"`
	PayoutAmount     decimal.Decimal `json:"payout_amount"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	OrderCount       int             `json:"order_count"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
}

// NewSupplierPaymentCompletedEvent builds the event from a completed payment
func NewSupplierPaymentCompletedEvent(p *SupplierPayment) *SupplierPaymentCompletedEvent {
	return &SupplierPaymentCompletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSupplierPaymentCompleted, AggregateTypeSupplierPayment, p.ID, p.SellerID),
		PaymentReference: p.PaymentReference,
		PaymentMethod:    p.PaymentMethod,
		PayoutAmount:     p.PayoutAmount,
		TotalSales:       p.TotalSales,
		TotalCommission:  p.TotalCommission,
		OrderCount:       p.OrderCount,
		PeriodStart:      p.PaymentPeriodStart,
		PeriodEnd:        p.PaymentPeriodEnd,
	}
}
