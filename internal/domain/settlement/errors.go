package settlement

import (
	"errors"

	"github.com/zetta/backend/internal/domain/shared"
)

// Domain errors for the settlement context
var (
	ErrCommissionNotFound        = shared.NewDomainError("COMMISSION_NOT_FOUND", "settlement: commission not found")
	ErrCommissionAlreadyRecorded = shared.NewDomainError("COMMISSION_ALREADY_RECORDED", "settlement: commission already recorded for order")
	ErrPaymentNotFound           = shared.NewDomainError("PAYMENT_NOT_FOUND", "payment not found")
	ErrPaymentAlreadyExists      = shared.NewDomainError("PAYMENT_ALREADY_EXISTS", "settlement: seller already has a payment for this period")
	ErrCommissionsClaimed        = shared.NewDomainError("COMMISSIONS_CLAIMED", "settlement: commissions were claimed by another payment")
	ErrNoOrdersInPeriod          = shared.NewDomainError("NO_ORDERS_IN_PERIOD", "no orders in period")
	ErrOrderNotFound             = shared.NewDomainError("ORDER_NOT_FOUND", "settlement: order not found")
	ErrOrderNotPaid              = shared.NewDomainError("ORDER_NOT_PAID", "settlement: order payment is not confirmed")

	ErrInvalidTransition        = errors.New("settlement: invalid status transition")
	ErrInvalidPeriod            = errors.New("settlement: period end must be after period start")
	ErrInvalidCommissionRate    = errors.New("settlement: commission rate must be between 0 and 1")
	ErrNegativeOrderAmount      = errors.New("settlement: order amount must not be negative")
	ErrInvalidSellerID          = errors.New("settlement: invalid seller ID")
	ErrInvalidOrderID           = errors.New("settlement: invalid order ID")
	ErrPaymentReferenceRequired = errors.New("settlement: payment reference is required")
	ErrPaymentMethodRequired    = errors.New("settlement: payment method is required")
)
