package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	svc         *Service
	commissions *MockCommissionRepository
	payments    *MockSupplierPaymentRepository
	orders      *MockOrderRepository
	tx          *fakeTxScope
	publisher   *MockEventPublisher
	metrics     *recordingMetrics
}

func newServiceFixture(t *testing.T, opts ...Option) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		commissions: new(MockCommissionRepository),
		payments:    new(MockSupplierPaymentRepository),
		orders:      new(MockOrderRepository),
		publisher:   new(MockEventPublisher),
		metrics:     &recordingMetrics{},
	}
	f.tx = &fakeTxScope{commissions: f.commissions, payments: f.payments, orders: f.orders}

	base := []Option{
		WithEventPublisher(f.publisher),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return fixedNow }),
	}
	svc, err := NewService(f.commissions, f.payments, f.orders, f.tx, zap.NewNop(), append(base, opts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func calculatedCommission(sellerID uuid.UUID, amount string) settlement.Commission {
	c, _ := settlement.NewCommission(uuid.New(), sellerID, dec(amount), settlement.DefaultCommissionRate)
	_ = c.Calculate(fixedNow)
	return *c
}

func TestNewService_RejectsInvalidRate(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, WithCommissionRate(dec("1.5")))
	assert.ErrorIs(t, err, settlement.ErrInvalidCommissionRate)
}

func TestService_RecordCommission(t *testing.T) {
	t.Run("paid order gets a calculated commission", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		order := &settlement.Order{ID: uuid.New(), SellerID: sellerID, TotalAmount: dec("100.00"), PaymentStatus: settlement.OrderPaymentStatusPaid}

		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.commissions.On("Create", mock.Anything, mock.AnythingOfType("*settlement.Commission")).Return(nil)
		f.orders.On("UpdateCommissionAmount", mock.Anything, order.ID, mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(dec("15.00"))
		})).Return(nil)

		resp, err := f.svc.RecordCommission(context.Background(), order.ID)
		require.NoError(t, err)

		assert.Equal(t, string(settlement.CommissionStatusCalculated), resp.Status)
		assert.True(t, resp.CommissionAmount.Equal(dec("15.00")))
		assert.True(t, resp.SellerPayout.Equal(dec("85.00")))
		assert.Equal(t, sellerID, resp.SellerID)
		require.NotNil(t, resp.CalculatedAt)
		assert.Equal(t, fixedNow, *resp.CalculatedAt)
		assert.Equal(t, 1, f.metrics.recorded)
		f.orders.AssertExpectations(t)
		f.commissions.AssertExpectations(t)
	})

	t.Run("custom rate", func(t *testing.T) {
		f := newServiceFixture(t, WithCommissionRate(dec("0.10")))
		order := &settlement.Order{ID: uuid.New(), SellerID: uuid.New(), TotalAmount: dec("59.99"), PaymentStatus: settlement.OrderPaymentStatusPaid}

		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.commissions.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.orders.On("UpdateCommissionAmount", mock.Anything, order.ID, mock.Anything).Return(nil)

		resp, err := f.svc.RecordCommission(context.Background(), order.ID)
		require.NoError(t, err)
		assert.True(t, resp.CommissionAmount.Equal(dec("6.00")))
		assert.True(t, resp.SellerPayout.Equal(dec("53.99")))
	})

	t.Run("unpaid order is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		order := &settlement.Order{ID: uuid.New(), SellerID: uuid.New(), TotalAmount: dec("10"), PaymentStatus: "pending"}
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := f.svc.RecordCommission(context.Background(), order.ID)
		assert.ErrorIs(t, err, settlement.ErrOrderNotPaid)
		f.commissions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.True(t, f.tx.rolledBack)
	})

	t.Run("second recording for the same order fails", func(t *testing.T) {
		f := newServiceFixture(t)
		order := &settlement.Order{ID: uuid.New(), SellerID: uuid.New(), TotalAmount: dec("10"), PaymentStatus: settlement.OrderPaymentStatusPaid}
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.commissions.On("Create", mock.Anything, mock.Anything).Return(settlement.ErrCommissionAlreadyRecorded)

		_, err := f.svc.RecordCommission(context.Background(), order.ID)
		assert.ErrorIs(t, err, settlement.ErrCommissionAlreadyRecorded)
		f.orders.AssertNotCalled(t, "UpdateCommissionAmount", mock.Anything, mock.Anything, mock.Anything)
		assert.Zero(t, f.metrics.recorded)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newServiceFixture(t)
		id := uuid.New()
		f.orders.On("FindByID", mock.Anything, id).Return(nil, settlement.ErrOrderNotFound)

		_, err := f.svc.RecordCommission(context.Background(), id)
		assert.ErrorIs(t, err, settlement.ErrOrderNotFound)
	})
}

func TestService_AggregatePayout(t *testing.T) {
	period := settlement.MonthOf(fixedNow)

	t.Run("sums calculated commissions", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		rows := []settlement.Commission{
			calculatedCommission(sellerID, "100.00"),
			calculatedCommission(sellerID, "59.99"),
		}
		f.commissions.On("FindCalculatedBySeller", mock.Anything, sellerID, period).Return(rows, nil)

		summary, err := f.svc.AggregatePayout(context.Background(), sellerID, period)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.OrderCount)
		assert.True(t, summary.TotalSales.Equal(dec("159.99")))
		assert.True(t, summary.TotalCommission.Equal(dec("24.00")))
		assert.True(t, summary.PayoutAmount.Equal(dec("135.99")))
	})

	t.Run("empty period is all zero", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		f.commissions.On("FindCalculatedBySeller", mock.Anything, sellerID, period).Return([]settlement.Commission{}, nil)

		summary, err := f.svc.AggregatePayout(context.Background(), sellerID, period)
		require.NoError(t, err)
		assert.Zero(t, summary.OrderCount)
		assert.True(t, summary.TotalSales.IsZero())
		assert.True(t, summary.PayoutAmount.IsZero())
		assert.Empty(t, summary.Commissions)
	})
}

func TestService_CreateSupplierPayment(t *testing.T) {
	period := settlement.MonthOf(fixedNow)

	t.Run("batches and claims calculated commissions into a pending payment", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		row := calculatedCommission(sellerID, "200.00")
		f.payments.On("ExistsActiveForSellerPeriod", mock.Anything, sellerID, period).Return(false, nil)
		f.commissions.On("FindCalculatedBySeller", mock.Anything, sellerID, period).
			Return([]settlement.Commission{row}, nil)
		f.payments.On("Save", mock.Anything, mock.AnythingOfType("*settlement.SupplierPayment")).Return(nil)
		f.commissions.On("ClaimForPayment", mock.Anything, mock.AnythingOfType("uuid.UUID"), []uuid.UUID{row.ID}).Return(int64(1), nil)

		resp, err := f.svc.CreateSupplierPayment(context.Background(), sellerID, period)
		require.NoError(t, err)
		assert.Equal(t, string(settlement.PaymentStatusPending), resp.Status)
		assert.True(t, resp.PayoutAmount.Equal(dec("170.00")))
		assert.Equal(t, 1, resp.OrderCount)
		assert.Equal(t, []string{string(settlement.PaymentStatusPending)}, f.metrics.transitions)
		f.commissions.AssertCalled(t, "ClaimForPayment", mock.Anything, resp.ID, []uuid.UUID{row.ID})
	})

	t.Run("no commissions means no payment", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		f.payments.On("ExistsActiveForSellerPeriod", mock.Anything, sellerID, period).Return(false, nil)
		f.commissions.On("FindCalculatedBySeller", mock.Anything, sellerID, period).Return([]settlement.Commission{}, nil)

		_, err := f.svc.CreateSupplierPayment(context.Background(), sellerID, period)
		assert.ErrorIs(t, err, settlement.ErrNoOrdersInPeriod)
		f.payments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("second payment for the same seller and period is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		f.payments.On("ExistsActiveForSellerPeriod", mock.Anything, sellerID, period).Return(true, nil)

		_, err := f.svc.CreateSupplierPayment(context.Background(), sellerID, period)
		assert.ErrorIs(t, err, settlement.ErrPaymentAlreadyExists)
		f.commissions.AssertNotCalled(t, "FindCalculatedBySeller", mock.Anything, mock.Anything, mock.Anything)
		f.payments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.metrics.transitions)
	})

	t.Run("commissions claimed concurrently roll the payment back", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		rows := []settlement.Commission{calculatedCommission(sellerID, "10.00"), calculatedCommission(sellerID, "20.00")}
		f.payments.On("ExistsActiveForSellerPeriod", mock.Anything, sellerID, period).Return(false, nil)
		f.commissions.On("FindCalculatedBySeller", mock.Anything, sellerID, period).Return(rows, nil)
		f.payments.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.commissions.On("ClaimForPayment", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

		_, err := f.svc.CreateSupplierPayment(context.Background(), sellerID, period)
		assert.ErrorIs(t, err, settlement.ErrCommissionsClaimed)
		assert.True(t, f.tx.rolledBack)
		assert.Empty(t, f.metrics.transitions)
	})
}

func pendingPayment(t *testing.T, sellerID uuid.UUID, amounts ...string) *settlement.SupplierPayment {
	t.Helper()
	rows := make([]settlement.Commission, 0, len(amounts))
	for _, a := range amounts {
		rows = append(rows, calculatedCommission(sellerID, a))
	}
	p, err := settlement.NewSupplierPayment(settlement.SummarizeCommissions(sellerID, settlement.MonthOf(fixedNow), rows))
	require.NoError(t, err)
	return p
}

func TestService_ProcessSupplierPayment(t *testing.T) {
	t.Run("completes payment settles commissions and publishes", func(t *testing.T) {
		f := newServiceFixture(t)
		sellerID := uuid.New()
		payment := pendingPayment(t, sellerID, "100.00", "50.00")

		f.payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		f.payments.On("Save", mock.Anything, payment).Return(nil)
		f.commissions.On("MarkPaidByPayment", mock.Anything, payment.ID, "TX-123", fixedNow).Return(int64(2), nil)
		f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			if len(events) != 1 {
				return false
			}
			e, ok := events[0].(*settlement.SupplierPaymentCompletedEvent)
			return ok && e.PaymentReference == "TX-123" && e.SellerID() == sellerID
		})).Return(nil)

		result, err := f.svc.ProcessSupplierPayment(context.Background(), payment.ID, "bank_transfer", "TX-123")
		require.NoError(t, err)

		assert.Equal(t, string(settlement.PaymentStatusCompleted), result.Payment.Status)
		assert.Equal(t, "TX-123", result.Payment.PaymentReference)
		assert.Equal(t, int64(2), result.CommissionsSettled)
		require.NotNil(t, result.Payment.PaidAt)
		assert.Equal(t, fixedNow, *result.Payment.PaidAt)
		assert.Empty(t, payment.DomainEvents())
		assert.Equal(t, []float64{127.5}, f.metrics.payouts)
		f.publisher.AssertExpectations(t)
		f.commissions.AssertExpectations(t)
	})

	t.Run("settlement failure rolls back and publishes nothing", func(t *testing.T) {
		f := newServiceFixture(t)
		payment := pendingPayment(t, uuid.New(), "10.00")
		dbErr := errors.New("connection reset")

		f.payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		f.payments.On("Save", mock.Anything, payment).Return(nil)
		f.commissions.On("MarkPaidByPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), dbErr)

		_, err := f.svc.ProcessSupplierPayment(context.Background(), payment.ID, "ach", "REF")
		assert.ErrorIs(t, err, dbErr)
		assert.True(t, f.tx.rolledBack)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		assert.Empty(t, f.metrics.payouts)
	})

	t.Run("completed payment cannot be processed again", func(t *testing.T) {
		f := newServiceFixture(t)
		payment := pendingPayment(t, uuid.New(), "10.00")
		require.NoError(t, payment.Complete("ach", "FIRST", fixedNow))

		f.payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

		_, err := f.svc.ProcessSupplierPayment(context.Background(), payment.ID, "ach", "SECOND")
		assert.ErrorIs(t, err, settlement.ErrInvalidTransition)
		f.commissions.AssertNotCalled(t, "MarkPaidByPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reference is required", func(t *testing.T) {
		f := newServiceFixture(t)
		payment := pendingPayment(t, uuid.New(), "10.00")
		f.payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

		_, err := f.svc.ProcessSupplierPayment(context.Background(), payment.ID, "ach", "")
		assert.ErrorIs(t, err, settlement.ErrPaymentReferenceRequired)
	})

	t.Run("unknown payment", func(t *testing.T) {
		f := newServiceFixture(t)
		id := uuid.New()
		f.payments.On("FindByID", mock.Anything, id).Return(nil, settlement.ErrPaymentNotFound)

		_, err := f.svc.ProcessSupplierPayment(context.Background(), id, "ach", "REF")
		assert.ErrorIs(t, err, settlement.ErrPaymentNotFound)
	})

	t.Run("publish failure does not fail the call", func(t *testing.T) {
		f := newServiceFixture(t)
		payment := pendingPayment(t, uuid.New(), "10.00")
		f.payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		f.payments.On("Save", mock.Anything, payment).Return(nil)
		f.commissions.On("MarkPaidByPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("handler failed"))

		result, err := f.svc.ProcessSupplierPayment(context.Background(), payment.ID, "ach", "REF")
		require.NoError(t, err)
		assert.Equal(t, string(settlement.PaymentStatusCompleted), result.Payment.Status)
	})
}

func TestService_BulkProcessPayments(t *testing.T) {
	period := settlement.MonthOf(fixedNow)
	f := newServiceFixture(t)
	withSales, withoutSales, alreadyPaid := uuid.New(), uuid.New(), uuid.New()

	f.orders.On("FindSellersWithPaidOrders", mock.Anything, period).Return([]uuid.UUID{withSales, withoutSales, alreadyPaid}, nil)
	f.payments.On("ExistsActiveForSellerPeriod", mock.Anything, withSales, period).Return(false, nil)
	f.payments.On("ExistsActiveForSellerPeriod", mock.Anything, withoutSales, period).Return(false, nil)
	f.payments.On("ExistsActiveForSellerPeriod", mock.Anything, alreadyPaid, period).Return(true, nil)
	f.commissions.On("FindCalculatedBySeller", mock.Anything, withSales, period).
		Return([]settlement.Commission{calculatedCommission(withSales, "40.00")}, nil)
	f.commissions.On("FindCalculatedBySeller", mock.Anything, withoutSales, period).Return([]settlement.Commission{}, nil)
	f.payments.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.commissions.On("ClaimForPayment", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	result, err := f.svc.BulkProcessPayments(context.Background(), period)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], withoutSales.String())
	assert.Len(t, result.PaymentIDs, 1)
	f.payments.AssertNumberOfCalls(t, "Save", 1)
}

func TestService_BulkProcessPayments_ListFailure(t *testing.T) {
	period := settlement.MonthOf(fixedNow)
	f := newServiceFixture(t)
	f.orders.On("FindSellersWithPaidOrders", mock.Anything, period).Return([]uuid.UUID(nil), errors.New("db down"))

	_, err := f.svc.BulkProcessPayments(context.Background(), period)
	assert.Error(t, err)
}

func TestService_FailSupplierPayment(t *testing.T) {
	f := newServiceFixture(t)
	payment := pendingPayment(t, uuid.New(), "10.00")
	f.payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	f.payments.On("Save", mock.Anything, payment).Return(nil)
	f.commissions.On("ReleaseFromPayment", mock.Anything, payment.ID).Return(int64(1), nil).Once()

	resp, err := f.svc.FailSupplierPayment(context.Background(), payment.ID, "account closed")
	require.NoError(t, err)
	assert.Equal(t, string(settlement.PaymentStatusFailed), resp.Status)
	assert.Equal(t, "account closed", resp.FailureReason)
	f.commissions.AssertExpectations(t)
	f.commissions.AssertNotCalled(t, "MarkPaidByPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = f.svc.FailSupplierPayment(context.Background(), payment.ID, "again")
	assert.ErrorIs(t, err, settlement.ErrInvalidTransition)
}

func TestService_ListSupplierPayments(t *testing.T) {
	f := newServiceFixture(t)
	sellerID := uuid.New()
	filter := settlement.SupplierPaymentFilter{Page: shared.Page{Page: 1, PageSize: 1}, SellerID: &sellerID}
	p := pendingPayment(t, sellerID, "10.00")

	f.payments.On("FindAll", mock.Anything, filter).Return([]settlement.SupplierPayment{*p}, nil)
	f.payments.On("Count", mock.Anything, filter).Return(int64(3), nil)

	page, err := f.svc.ListSupplierPayments(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestService_ListCommissions(t *testing.T) {
	f := newServiceFixture(t)
	filter := settlement.CommissionFilter{Page: shared.Page{Page: 1, PageSize: 20}, Status: settlement.CommissionStatusCalculated}
	c := calculatedCommission(uuid.New(), "10.00")

	f.commissions.On("FindAll", mock.Anything, filter).Return([]settlement.Commission{c}, nil)
	f.commissions.On("Count", mock.Anything, filter).Return(int64(1), nil)

	page, err := f.svc.ListCommissions(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, c.ID, page.Items[0].ID)
}

func TestService_Reconcile(t *testing.T) {
	f := newServiceFixture(t)
	paidAt := fixedNow.Add(-time.Hour)
	ok := pendingPayment(t, uuid.New(), "10.00")
	require.NoError(t, ok.Complete("ach", "REF-OK", paidAt))
	broken := pendingPayment(t, uuid.New(), "20.00")
	require.NoError(t, broken.Complete("ach", "REF-BAD", paidAt))

	f.payments.On("FindCompletedWithUnsettledCommissions", mock.Anything).Return([]settlement.SupplierPayment{*ok, *broken}, nil)
	f.commissions.On("MarkPaidByPayment", mock.Anything, ok.ID, "REF-OK", paidAt).Return(int64(1), nil)
	f.commissions.On("MarkPaidByPayment", mock.Anything, broken.ID, "REF-BAD", paidAt).Return(int64(0), errors.New("lock timeout"))

	result, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.PaymentsChecked)
	assert.Equal(t, int64(1), result.CommissionsSettled)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, int64(1), f.metrics.reconciled)
}
