package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
)

type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Commission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Commission), args.Error(1)
}

func (m *MockCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*settlement.Commission, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Commission), args.Error(1)
}

func (m *MockCommissionRepository) FindCalculatedBySeller(ctx context.Context, sellerID uuid.UUID, period settlement.Period) ([]settlement.Commission, error) {
	args := m.Called(ctx, sellerID, period)
	return args.Get(0).([]settlement.Commission), args.Error(1)
}

func (m *MockCommissionRepository) FindAll(ctx context.Context, filter settlement.CommissionFilter) ([]settlement.Commission, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]settlement.Commission), args.Error(1)
}

func (m *MockCommissionRepository) Count(ctx context.Context, filter settlement.CommissionFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommissionRepository) Create(ctx context.Context, c *settlement.Commission) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCommissionRepository) Save(ctx context.Context, c *settlement.Commission) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCommissionRepository) ClaimForPayment(ctx context.Context, paymentID uuid.UUID, commissionIDs []uuid.UUID) (int64, error) {
	args := m.Called(ctx, paymentID, commissionIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommissionRepository) ReleaseFromPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommissionRepository) MarkPaidByPayment(ctx context.Context, paymentID uuid.UUID, reference string, paidAt time.Time) (int64, error) {
	args := m.Called(ctx, paymentID, reference, paidAt)
	return args.Get(0).(int64), args.Error(1)
}

type MockSupplierPaymentRepository struct {
	mock.Mock
}

func (m *MockSupplierPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.SupplierPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.SupplierPayment), args.Error(1)
}

func (m *MockSupplierPaymentRepository) FindAll(ctx context.Context, filter settlement.SupplierPaymentFilter) ([]settlement.SupplierPayment, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]settlement.SupplierPayment), args.Error(1)
}

func (m *MockSupplierPaymentRepository) Count(ctx context.Context, filter settlement.SupplierPaymentFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSupplierPaymentRepository) ExistsActiveForSellerPeriod(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (bool, error) {
	args := m.Called(ctx, sellerID, period)
	return args.Bool(0), args.Error(1)
}

func (m *MockSupplierPaymentRepository) FindCompletedWithUnsettledCommissions(ctx context.Context) ([]settlement.SupplierPayment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]settlement.SupplierPayment), args.Error(1)
}

func (m *MockSupplierPaymentRepository) Save(ctx context.Context, p *settlement.SupplierPayment) error {
	return m.Called(ctx, p).Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateCommissionAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return m.Called(ctx, id, amount).Error(0)
}

func (m *MockOrderRepository) FindSellersWithPaidOrders(ctx context.Context, period settlement.Period) ([]uuid.UUID, error) {
	args := m.Called(ctx, period)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// fakeTxScope runs fn against the same mocks and records whether the
// callback failed, which stands in for a rollback.
type fakeTxScope struct {
	commissions *MockCommissionRepository
	payments    *MockSupplierPaymentRepository
	orders      *MockOrderRepository
	rolledBack  bool
}

func (s *fakeTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	err := fn(s)
	s.rolledBack = err != nil
	return err
}

func (s *fakeTxScope) Commissions() settlement.CommissionRepository   { return s.commissions }
func (s *fakeTxScope) Payments() settlement.SupplierPaymentRepository { return s.payments }
func (s *fakeTxScope) Orders() settlement.OrderRepository             { return s.orders }

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type MockSellerDirectory struct {
	mock.Mock
}

func (m *MockSellerDirectory) FindContact(ctx context.Context, sellerID uuid.UUID) (*SellerContact, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SellerContact), args.Error(1)
}

type recordingMetrics struct {
	recorded    int
	transitions []string
	payouts     []float64
	reconciled  int64
}

func (r *recordingMetrics) CommissionRecorded()                   { r.recorded++ }
func (r *recordingMetrics) PaymentTransition(status string)       { r.transitions = append(r.transitions, status) }
func (r *recordingMetrics) PayoutCompleted(amount float64)        { r.payouts = append(r.payouts, amount) }
func (r *recordingMetrics) CommissionsSettledByReconcile(n int64) { r.reconciled += n }
