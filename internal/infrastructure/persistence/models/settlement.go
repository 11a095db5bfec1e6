package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
)

// OrderModel is the subset of the marketplace orders table the settlement
// context reads and writes.
type OrderModel struct {
	BaseModel
	SellerID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	TotalAmount      decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	CommissionAmount *decimal.Decimal `gorm:"type:numeric(12,2)"`
	PaymentStatus    string           `gorm:"type:varchar(20);not null;index"`
	PaidAt           *time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a settlement Order
func (m *OrderModel) ToDomain() *settlement.Order {
	o := &settlement.Order{
		ID:            m.ID,
		SellerID:      m.SellerID,
		TotalAmount:   m.TotalAmount,
		PaymentStatus: m.PaymentStatus,
		PaidAt:        m.PaidAt,
	}
	if m.CommissionAmount != nil {
		o.CommissionAmount = *m.CommissionAmount
	}
	return o
}

// CommissionModel is the persistence model for a per-order commission.
// order_id is unique so an order can be commissioned once.
type CommissionModel struct {
	BaseModel
	OrderID           uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex"`
	SellerID          uuid.UUID                   `gorm:"type:uuid;not null;index:idx_commissions_seller_status"`
	OrderAmount       decimal.Decimal             `gorm:"type:numeric(12,2);not null"`
	CommissionRate    decimal.Decimal             `gorm:"type:numeric(5,4);not null"`
	CommissionAmount  decimal.Decimal             `gorm:"type:numeric(12,2);not null"`
	SellerPayout      decimal.Decimal             `gorm:"type:numeric(12,2);not null"`
	Status            settlement.CommissionStatus `gorm:"type:varchar(20);not null;index:idx_commissions_seller_status"`
	CalculatedAt      *time.Time                  `gorm:"index"`
	SupplierPaymentID *uuid.UUID                  `gorm:"type:uuid;index"`
	PaidAt            *time.Time
	PaymentReference  string `gorm:"type:varchar(200)"`
	FailureReason     string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CommissionModel) TableName() string {
	return "commissions"
}

// ToDomain converts the persistence model to a domain Commission
func (m *CommissionModel) ToDomain() *settlement.Commission {
	return &settlement.Commission{
		ID:                m.ID,
		OrderID:           m.OrderID,
		SellerID:          m.SellerID,
		OrderAmount:       m.OrderAmount,
		CommissionRate:    m.CommissionRate,
		CommissionAmount:  m.CommissionAmount,
		SellerPayout:      m.SellerPayout,
		Status:            m.Status,
		CalculatedAt:      m.CalculatedAt,
		SupplierPaymentID: m.SupplierPaymentID,
		PaidAt:            m.PaidAt,
		PaymentReference:  m.PaymentReference,
		FailureReason:     m.FailureReason,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// CommissionModelFromDomain converts a domain Commission to its model
func CommissionModelFromDomain(c *settlement.Commission) *CommissionModel {
	return &CommissionModel{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		OrderID:           c.OrderID,
		SellerID:          c.SellerID,
		OrderAmount:       c.OrderAmount,
		CommissionRate:    c.CommissionRate,
		CommissionAmount:  c.CommissionAmount,
		SellerPayout:      c.SellerPayout,
		Status:            c.Status,
		CalculatedAt:      c.CalculatedAt,
		SupplierPaymentID: c.SupplierPaymentID,
		PaidAt:            c.PaidAt,
		PaymentReference:  c.PaymentReference,
		FailureReason:     c.FailureReason,
	}
}

// SupplierPaymentModel is the persistence model for a periodic seller payout.
// At most one payment that has not failed exists per seller and period.
type SupplierPaymentModel struct {
	BaseModel
	SellerID           uuid.UUID                `gorm:"type:uuid;not null;index;uniqueIndex:idx_supplier_payments_active_period,where:status <> 'failed'"`
	PaymentPeriodStart time.Time                `gorm:"not null;uniqueIndex:idx_supplier_payments_active_period"`
	PaymentPeriodEnd   time.Time                `gorm:"not null;uniqueIndex:idx_supplier_payments_active_period"`
	TotalSales         decimal.Decimal          `gorm:"type:numeric(14,2);not null"`
	TotalCommission    decimal.Decimal          `gorm:"type:numeric(14,2);not null"`
	PayoutAmount       decimal.Decimal          `gorm:"type:numeric(14,2);not null"`
	OrderCount         int                      `gorm:"not null"`
	Status             settlement.PaymentStatus `gorm:"type:varchar(20);not null;index"`
	PaymentMethod      string                   `gorm:"type:varchar(50)"`
	PaymentReference   string                   `gorm:"type:varchar(200)"`
	PaidAt             *time.Time
	FailureReason      string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SupplierPaymentModel) TableName() string {
	return "supplier_payments"
}

// ToDomain converts the persistence model to a domain SupplierPayment
func (m *SupplierPaymentModel) ToDomain() *settlement.SupplierPayment {
	return &settlement.SupplierPayment{
		AggregateRoot:      shared.AggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		SellerID:           m.SellerID,
		PaymentPeriodStart: m.PaymentPeriodStart,
		PaymentPeriodEnd:   m.PaymentPeriodEnd,
		TotalSales:         m.TotalSales,
		TotalCommission:    m.TotalCommission,
		PayoutAmount:       m.PayoutAmount,
		OrderCount:         m.OrderCount,
		Status:             m.Status,
		PaymentMethod:      m.PaymentMethod,
		PaymentReference:   m.PaymentReference,
		PaidAt:             m.PaidAt,
		FailureReason:      m.FailureReason,
	}
}

// SupplierPaymentModelFromDomain converts a domain SupplierPayment to its model
func SupplierPaymentModelFromDomain(p *settlement.SupplierPayment) *SupplierPaymentModel {
	m := &SupplierPaymentModel{
		SellerID:           p.SellerID,
		PaymentPeriodStart: p.PaymentPeriodStart,
		PaymentPeriodEnd:   p.PaymentPeriodEnd,
		TotalSales:         p.TotalSales,
		TotalCommission:    p.TotalCommission,
		PayoutAmount:       p.PayoutAmount,
		OrderCount:         p.OrderCount,
		Status:             p.Status,
		PaymentMethod:      p.PaymentMethod,
		PaymentReference:   p.PaymentReference,
		PaidAt:             p.PaidAt,
		FailureReason:      p.FailureReason,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
