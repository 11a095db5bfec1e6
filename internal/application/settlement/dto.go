package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zetta/backend/internal/domain/settlement"
)

// CommissionResponse is the API view of a commission
type CommissionResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"order_id"`
	SellerID          uuid.UUID       `json:"seller_id"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	SellerPayout      decimal.Decimal `json:"seller_payout"`
	Status            string          `json:"status"`
	CalculatedAt      *time.Time      `json:"calculated_at,omitempty"`
	SupplierPaymentID *uuid.UUID      `json:"supplier_payment_id,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	PaymentReference  string          `json:"payment_reference,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToCommissionResponse converts a domain commission
func ToCommissionResponse(c *settlement.Commission) CommissionResponse {
	return CommissionResponse{
		ID:                c.ID,
		OrderID:           c.OrderID,
		SellerID:          c.SellerID,
		OrderAmount:       c.OrderAmount,
		CommissionRate:    c.CommissionRate,
		CommissionAmount:  c.CommissionAmount,
		SellerPayout:      c.SellerPayout,
		Status:            string(c.Status),
		CalculatedAt:      c.CalculatedAt,
		SupplierPaymentID: c.SupplierPaymentID,
		PaidAt:            c.PaidAt,
		PaymentReference:  c.PaymentReference,
		FailureReason:     c.FailureReason,
		CreatedAt:         c.CreatedAt,
	}
}

// ToCommissionResponses converts a slice of commissions
func ToCommissionResponses(cs []settlement.Commission) []CommissionResponse {
	out := make([]CommissionResponse, len(cs))
	for i := range cs {
		out[i] = ToCommissionResponse(&cs[i])
	}
	return out
}

// PayoutSummaryResponse is the aggregate of calculated commissions for a seller and period
type PayoutSummaryResponse struct {
	SellerID        uuid.UUID            `json:"seller_id"`
	PeriodStart     time.Time            `json:"period_start"`
	PeriodEnd       time.Time            `json:"period_end"`
	TotalSales      decimal.Decimal      `json:"total_sales"`
	TotalCommission decimal.Decimal      `json:"total_commission"`
	PayoutAmount    decimal.Decimal      `json:"payout_amount"`
	OrderCount      int                  `json:"order_count"`
	Commissions     []CommissionResponse `json:"commissions"`
}

// ToPayoutSummaryResponse converts a payout summary
func ToPayoutSummaryResponse(s settlement.PayoutSummary) PayoutSummaryResponse {
	return PayoutSummaryResponse{
		SellerID:        s.SellerID,
		PeriodStart:     s.Period.Start,
		PeriodEnd:       s.Period.End,
		TotalSales:      s.TotalSales,
		TotalCommission: s.TotalCommission,
		PayoutAmount:    s.PayoutAmount,
		OrderCount:      s.OrderCount,
		Commissions:     ToCommissionResponses(s.Commissions),
	}
}

// SupplierPaymentResponse is the API view of a supplier payment
type SupplierPaymentResponse struct {
	ID                 uuid.UUID       `json:"id"`
	SellerID           uuid.UUID       `json:"seller_id"`
	PaymentPeriodStart time.Time       `json:"payment_period_start"`
	PaymentPeriodEnd   time.Time       `json:"payment_period_end"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
	PayoutAmount       decimal.Decimal `json:"payout_amount"`
	OrderCount         int             `json:"order_count"`
	Status             string          `json:"status"`
	PaymentMethod      string          `json:"payment_method,omitempty"`
	PaymentReference   string          `json:"payment_reference,omitempty"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	FailureReason      string          `json:"failure_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToSupplierPaymentResponse converts a domain payment
func ToSupplierPaymentResponse(p *settlement.SupplierPayment) SupplierPaymentResponse {
	return SupplierPaymentResponse{
		ID:                 p.ID,
		SellerID:           p.SellerID,
		PaymentPeriodStart: p.PaymentPeriodStart,
		PaymentPeriodEnd:   p.PaymentPeriodEnd,
		TotalSales:         p.TotalSales,
		TotalCommission:    p.TotalCommission,
		PayoutAmount:       p.PayoutAmount,
		OrderCount:         p.OrderCount,
		Status:             string(p.Status),
		PaymentMethod:      p.PaymentMethod,
		PaymentReference:   p.PaymentReference,
		PaidAt:             p.PaidAt,
		FailureReason:      p.FailureReason,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// ToSupplierPaymentResponses converts a slice of payments
func ToSupplierPaymentResponses(ps []settlement.SupplierPayment) []SupplierPaymentResponse {
	out := make([]SupplierPaymentResponse, len(ps))
	for i := range ps {
		out[i] = ToSupplierPaymentResponse(&ps[i])
	}
	return out
}

// ProcessPaymentResult reports a completed payout
type ProcessPaymentResult struct {
	Payment            SupplierPaymentResponse `json:"payment"`
	CommissionsSettled int64                   `json:"commissions_settled"`
}

// BulkResult is the outcome of a best-effort batch
type BulkResult struct {
	Processed  int         `json:"processed"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Errors     []string    `json:"errors"`
	PaymentIDs []uuid.UUID `json:"payment_ids"`
}

// ReconcileResult is the outcome of one reconciliation pass
type ReconcileResult struct {
	PaymentsChecked    int      `json:"payments_checked"`
	CommissionsSettled int64    `json:"commissions_settled"`
	Errors             []string `json:"errors"`
}
