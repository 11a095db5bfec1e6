package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	settlementapp "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/interfaces/http/dto"
)

// MockSettlementService implements SettlementService for testing
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) RecordCommission(ctx context.Context, orderID uuid.UUID) (*settlementapp.CommissionResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.CommissionResponse), args.Error(1)
}

func (m *MockSettlementService) PreviewPayout(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (*settlementapp.PayoutSummaryResponse, error) {
	args := m.Called(ctx, sellerID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.PayoutSummaryResponse), args.Error(1)
}

func (m *MockSettlementService) CreateSupplierPayment(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (*settlementapp.SupplierPaymentResponse, error) {
	args := m.Called(ctx, sellerID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.SupplierPaymentResponse), args.Error(1)
}

func (m *MockSettlementService) ProcessSupplierPayment(ctx context.Context, paymentID uuid.UUID, method, reference string) (*settlementapp.ProcessPaymentResult, error) {
	args := m.Called(ctx, paymentID, method, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.ProcessPaymentResult), args.Error(1)
}

func (m *MockSettlementService) BulkProcessPayments(ctx context.Context, period settlement.Period) (*settlementapp.BulkResult, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.BulkResult), args.Error(1)
}

func (m *MockSettlementService) FailSupplierPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*settlementapp.SupplierPaymentResponse, error) {
	args := m.Called(ctx, paymentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.SupplierPaymentResponse), args.Error(1)
}

func (m *MockSettlementService) GetSupplierPayment(ctx context.Context, paymentID uuid.UUID) (*settlementapp.SupplierPaymentResponse, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.SupplierPaymentResponse), args.Error(1)
}

func (m *MockSettlementService) ListSupplierPayments(ctx context.Context, filter settlement.SupplierPaymentFilter) (shared.Paginated[settlementapp.SupplierPaymentResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[settlementapp.SupplierPaymentResponse]), args.Error(1)
}

func (m *MockSettlementService) ListCommissions(ctx context.Context, filter settlement.CommissionFilter) (shared.Paginated[settlementapp.CommissionResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[settlementapp.CommissionResponse]), args.Error(1)
}

func (m *MockSettlementService) Reconcile(ctx context.Context) (*settlementapp.ReconcileResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.ReconcileResult), args.Error(1)
}

func settlementRouter(svc SettlementService, auth gin.HandlerFunc) *gin.Engine {
	h := NewSettlementHandler(svc)
	r := gin.New()
	r.Use(auth)
	r.POST("/settlement/commissions", h.RecordCommission)
	r.GET("/settlement/commissions", h.ListCommissions)
	r.GET("/settlement/payouts/preview", h.PreviewPayout)
	r.POST("/settlement/payments", h.CreatePayment)
	r.GET("/settlement/payments", h.ListPayments)
	r.POST("/settlement/payments/bulk", h.BulkProcess)
	r.GET("/settlement/payments/:id", h.GetPayment)
	r.POST("/settlement/payments/:id/process", h.ProcessPayment)
	r.POST("/settlement/payments/:id/fail", h.FailPayment)
	r.POST("/settlement/reconcile", h.Reconcile)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSettlementHandler_RecordCommission(t *testing.T) {
	svc := new(MockSettlementService)
	orderID := uuid.New()
	svc.On("RecordCommission", mock.Anything, orderID).Return(&settlementapp.CommissionResponse{
		ID:               uuid.New(),
		OrderID:          orderID,
		OrderAmount:      decimal.NewFromInt(1000),
		CommissionAmount: decimal.NewFromInt(150),
		SellerPayout:     decimal.NewFromInt(850),
		Status:           "calculated",
	}, nil)

	r := settlementRouter(svc, asAdmin())
	w := do(r, http.MethodPost, "/settlement/commissions", `{"order_id":"`+orderID.String()+`"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "150", data["commission_amount"])
	assert.Equal(t, "850", data["seller_payout"])
	svc.AssertExpectations(t)
}

func TestSettlementHandler_RecordCommission_Errors(t *testing.T) {
	orderID := uuid.New()

	t.Run("invalid body", func(t *testing.T) {
		svc := new(MockSettlementService)
		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/commissions", `{"order_id":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
		svc.AssertNotCalled(t, "RecordCommission")
	})

	t.Run("order not paid", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("RecordCommission", mock.Anything, orderID).Return(nil, settlement.ErrOrderNotPaid)
		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/commissions", `{"order_id":"`+orderID.String()+`"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeOrderNotPaid, decodeResponse(t, w).Error.Code)
	})

	t.Run("already recorded", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("RecordCommission", mock.Anything, orderID).Return(nil, settlement.ErrCommissionAlreadyRecorded)
		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/commissions", `{"order_id":"`+orderID.String()+`"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSettlementHandler_ListCommissions_SellerScope(t *testing.T) {
	own, other := uuid.New(), uuid.New()

	t.Run("seller is pinned to own id", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("ListCommissions", mock.Anything, mock.MatchedBy(func(f settlement.CommissionFilter) bool {
			return f.SellerID != nil && *f.SellerID == own && f.Status == settlement.CommissionStatusPaid && f.PageSize == 5
		})).Return(shared.NewPaginated([]settlementapp.CommissionResponse{{SellerID: own}}, 11, shared.Page{Page: 1, PageSize: 5}), nil)

		w := do(settlementRouter(svc, asSeller(own)), http.MethodGet, "/settlement/commissions?status=paid&page_size=5", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(11), resp.Meta.Total)
		assert.Equal(t, 3, resp.Meta.TotalPages)
		svc.AssertExpectations(t)
	})

	t.Run("seller naming another seller is forbidden", func(t *testing.T) {
		svc := new(MockSettlementService)
		w := do(settlementRouter(svc, asSeller(own)), http.MethodGet, "/settlement/commissions?seller_id="+other.String(), "")

		assert.Equal(t, http.StatusForbidden, w.Code)
		svc.AssertNotCalled(t, "ListCommissions")
	})

	t.Run("admin may list everything", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("ListCommissions", mock.Anything, mock.MatchedBy(func(f settlement.CommissionFilter) bool {
			return f.SellerID == nil
		})).Return(shared.NewPaginated([]settlementapp.CommissionResponse{}, 0, shared.Page{}), nil)

		w := do(settlementRouter(svc, asAdmin()), http.MethodGet, "/settlement/commissions", "")
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestSettlementHandler_PreviewPayout(t *testing.T) {
	sellerID := uuid.New()
	period := settlement.Period{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("seller previews own payout", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("PreviewPayout", mock.Anything, sellerID, period).Return(&settlementapp.PayoutSummaryResponse{
			SellerID:     sellerID,
			PayoutAmount: decimal.RequireFromString("1275.50"),
			OrderCount:   3,
		}, nil)

		w := do(settlementRouter(svc, asSeller(sellerID)), http.MethodGet,
			"/settlement/payouts/preview?period_start=2026-03-01&period_end=2026-04-01", "")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "1275.5", data["payout_amount"])
		svc.AssertExpectations(t)
	})

	t.Run("admin must name a seller", func(t *testing.T) {
		svc := new(MockSettlementService)
		w := do(settlementRouter(svc, asAdmin()), http.MethodGet,
			"/settlement/payouts/preview?period_start=2026-03-01&period_end=2026-04-01", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted period", func(t *testing.T) {
		svc := new(MockSettlementService)
		w := do(settlementRouter(svc, asSeller(sellerID)), http.MethodGet,
			"/settlement/payouts/preview?period_start=2026-04-01&period_end=2026-03-01", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
		svc.AssertNotCalled(t, "PreviewPayout")
	})
}

func TestSettlementHandler_CreatePayment(t *testing.T) {
	sellerID := uuid.New()
	period := settlement.Period{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	body := `{"seller_id":"` + sellerID.String() + `","period_start":"2026-03-01","period_end":"2026-04-01"}`

	t.Run("created", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("CreateSupplierPayment", mock.Anything, sellerID, period).Return(&settlementapp.SupplierPaymentResponse{
			ID: uuid.New(), SellerID: sellerID, Status: "pending", OrderCount: 2,
		}, nil)

		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/payments", body)
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("no orders", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("CreateSupplierPayment", mock.Anything, sellerID, period).Return(nil, settlement.ErrNoOrdersInPeriod)

		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/payments", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeNoOrdersInPeriod, decodeResponse(t, w).Error.Code)
	})

	t.Run("period already has a payment", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("CreateSupplierPayment", mock.Anything, sellerID, period).Return(nil, settlement.ErrPaymentAlreadyExists)

		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/payments", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, decodeResponse(t, w).Error.Code)
	})
}

func TestSettlementHandler_GetPayment(t *testing.T) {
	own, other := uuid.New(), uuid.New()
	paymentID := uuid.New()

	svc := new(MockSettlementService)
	svc.On("GetSupplierPayment", mock.Anything, paymentID).Return(&settlementapp.SupplierPaymentResponse{
		ID: paymentID, SellerID: own, Status: "pending",
	}, nil)

	w := do(settlementRouter(svc, asSeller(own)), http.MethodGet, "/settlement/payments/"+paymentID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(settlementRouter(svc, asSeller(other)), http.MethodGet, "/settlement/payments/"+paymentID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(settlementRouter(svc, asAdmin()), http.MethodGet, "/settlement/payments/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettlementHandler_ProcessPayment(t *testing.T) {
	paymentID := uuid.New()

	t.Run("completes", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("ProcessSupplierPayment", mock.Anything, paymentID, "ach", "ACH-991").Return(&settlementapp.ProcessPaymentResult{
			Payment:            settlementapp.SupplierPaymentResponse{ID: paymentID, Status: "completed"},
			CommissionsSettled: 4,
		}, nil)

		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/payments/"+paymentID.String()+"/process",
			`{"payment_method":"ach","payment_reference":"ACH-991"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, float64(4), data["commissions_settled"])
		svc.AssertExpectations(t)
	})

	t.Run("missing reference", func(t *testing.T) {
		svc := new(MockSettlementService)
		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/payments/"+paymentID.String()+"/process",
			`{"payment_method":"ach"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "ProcessSupplierPayment")
	})

	t.Run("already completed", func(t *testing.T) {
		svc := new(MockSettlementService)
		svc.On("ProcessSupplierPayment", mock.Anything, paymentID, "wire", "W-1").Return(nil, settlement.ErrInvalidTransition)

		w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/payments/"+paymentID.String()+"/process",
			`{"payment_method":"wire","payment_reference":"W-1"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decodeResponse(t, w).Error.Code)
	})
}

func TestSettlementHandler_FailPayment(t *testing.T) {
	paymentID := uuid.New()
	svc := new(MockSettlementService)
	svc.On("FailSupplierPayment", mock.Anything, paymentID, "bank rejected").Return(&settlementapp.SupplierPaymentResponse{
		ID: paymentID, Status: "failed", FailureReason: "bank rejected",
	}, nil)

	w := do(settlementRouter(svc, asAdmin()), http.MethodPost, "/settlement/payments/"+paymentID.String()+"/fail",
		`{"reason":"bank rejected"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSettlementHandler_BulkAndReconcile(t *testing.T) {
	period := settlement.Period{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	svc := new(MockSettlementService)
	svc.On("BulkProcessPayments", mock.Anything, period).Return(&settlementapp.BulkResult{
		Processed: 2, Failed: 1, Errors: []string{"seller x: no orders in period"},
	}, nil)
	svc.On("Reconcile", mock.Anything).Return(&settlementapp.ReconcileResult{PaymentsChecked: 3}, nil)

	r := settlementRouter(svc, asAdmin())

	w := do(r, http.MethodPost, "/settlement/payments/bulk", `{"period_start":"2026-03-01","period_end":"2026-04-01"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(2), data["processed"])
	assert.Equal(t, float64(1), data["failed"])

	w = do(r, http.MethodPost, "/settlement/reconcile", "")
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
