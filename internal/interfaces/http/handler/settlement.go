package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	settlementapp "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/interfaces/http/dto"
	"github.com/zetta/backend/internal/interfaces/http/middleware"
)

// SettlementService is the settlement use case surface the handler drives
type SettlementService interface {
	RecordCommission(ctx context.Context, orderID uuid.UUID) (*settlementapp.CommissionResponse, error)
	PreviewPayout(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (*settlementapp.PayoutSummaryResponse, error)
	CreateSupplierPayment(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (*settlementapp.SupplierPaymentResponse, error)
	ProcessSupplierPayment(ctx context.Context, paymentID uuid.UUID, method, reference string) (*settlementapp.ProcessPaymentResult, error)
	BulkProcessPayments(ctx context.Context, period settlement.Period) (*settlementapp.BulkResult, error)
	FailSupplierPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*settlementapp.SupplierPaymentResponse, error)
	GetSupplierPayment(ctx context.Context, paymentID uuid.UUID) (*settlementapp.SupplierPaymentResponse, error)
	ListSupplierPayments(ctx context.Context, filter settlement.SupplierPaymentFilter) (shared.Paginated[settlementapp.SupplierPaymentResponse], error)
	ListCommissions(ctx context.Context, filter settlement.CommissionFilter) (shared.Paginated[settlementapp.CommissionResponse], error)
	Reconcile(ctx context.Context) (*settlementapp.ReconcileResult, error)
}

// SettlementHandler serves commission and payout endpoints
type SettlementHandler struct {
	BaseHandler
	service SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(service SettlementService) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// RecordCommissionRequest names the paid order to take a commission on
type RecordCommissionRequest struct {
	OrderID string `json:"order_id" binding:"required,uuid"`
}

// PeriodRequest carries a settlement period as dates or RFC 3339 timestamps
type PeriodRequest struct {
	PeriodStart string `json:"period_start" form:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" form:"period_end" binding:"required"`
}

// CreatePaymentRequest opens a payout for one seller and period
type CreatePaymentRequest struct {
	SellerID string `json:"seller_id" binding:"required,uuid"`
	PeriodRequest
}

// ProcessPaymentRequest completes a payout
type ProcessPaymentRequest struct {
	PaymentMethod    string `json:"payment_method" binding:"required,max=50"`
	PaymentReference string `json:"payment_reference" binding:"required,max=255"`
}

// FailPaymentRequest records why a payout failed
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// ListSettlementRequest filters commission and payment listings
type ListSettlementRequest struct {
	dto.ListRequest
	SellerID string `form:"seller_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,max=20"`
}

// RecordCommission handles POST /settlement/commissions
func (h *SettlementHandler) RecordCommission(c *gin.Context) {
	var req RecordCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.service.RecordCommission(c.Request.Context(), uuid.MustParse(req.OrderID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListCommissions handles GET /settlement/commissions
func (h *SettlementHandler) ListCommissions(c *gin.Context) {
	var req ListSettlementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sellerID, err := h.scopedSeller(c, req.SellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, err := h.service.ListCommissions(c.Request.Context(), settlement.CommissionFilter{
		Page:     req.ToPage(),
		SellerID: sellerID,
		Status:   settlement.CommissionStatus(req.Status),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// PreviewPayout handles GET /settlement/payouts/preview
func (h *SettlementHandler) PreviewPayout(c *gin.Context) {
	var req struct {
		SellerID string `form:"seller_id" binding:"omitempty,uuid"`
		PeriodRequest
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sellerID, err := h.scopedSeller(c, req.SellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if sellerID == nil {
		h.BadRequest(c, "seller_id is required")
		return
	}
	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	summary, err := h.service.PreviewPayout(c.Request.Context(), *sellerID, period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// CreatePayment handles POST /settlement/payments
func (h *SettlementHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payment, err := h.service.CreateSupplierPayment(c.Request.Context(), uuid.MustParse(req.SellerID), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// ListPayments handles GET /settlement/payments
func (h *SettlementHandler) ListPayments(c *gin.Context) {
	var req ListSettlementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sellerID, err := h.scopedSeller(c, req.SellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, err := h.service.ListSupplierPayments(c.Request.Context(), settlement.SupplierPaymentFilter{
		Page:     req.ToPage(),
		SellerID: sellerID,
		Status:   settlement.PaymentStatus(req.Status),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// GetPayment handles GET /settlement/payments/:id
func (h *SettlementHandler) GetPayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.service.GetSupplierPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	// sellers only see their own payouts; another seller's looks absent
	if _, err := middleware.ScopeSeller(c, &payment.SellerID); err != nil {
		h.HandleError(c, settlement.ErrPaymentNotFound)
		return
	}
	h.Success(c, payment)
}

// ProcessPayment handles POST /settlement/payments/:id/process
func (h *SettlementHandler) ProcessPayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.service.ProcessSupplierPayment(c.Request.Context(), id, req.PaymentMethod, req.PaymentReference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// FailPayment handles POST /settlement/payments/:id/fail
func (h *SettlementHandler) FailPayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	payment, err := h.service.FailSupplierPayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// BulkProcess handles POST /settlement/payments/bulk
func (h *SettlementHandler) BulkProcess(c *gin.Context) {
	var req PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.service.BulkProcessPayments(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reconcile handles POST /settlement/reconcile
func (h *SettlementHandler) Reconcile(c *gin.Context) {
	result, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *SettlementHandler) scopedSeller(c *gin.Context, raw string) (*uuid.UUID, error) {
	requested, err := parseOptionalUUID(raw)
	if err != nil {
		return nil, settlement.ErrInvalidSellerID
	}
	return middleware.ScopeSeller(c, requested)
}
