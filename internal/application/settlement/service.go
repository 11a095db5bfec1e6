// Package settlement holds the commission and supplier payout use cases.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/infrastructure/logger"
	"github.com/zetta/backend/internal/infrastructure/telemetry"
)

// Service computes commissions and settles seller payouts.
type Service struct {
	commissions settlement.CommissionRepository
	payments    settlement.SupplierPaymentRepository
	orders      settlement.OrderRepository
	txScope     TransactionScope
	publisher   shared.EventPublisher
	metrics     SettlementMetrics
	rate        decimal.Decimal
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithCommissionRate overrides the default 15% platform cut
func WithCommissionRate(rate decimal.Decimal) Option {
	return func(s *Service) {
		s.rate = rate
	}
}

// WithEventPublisher publishes payment events after commit
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m SettlementMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a settlement Service
func NewService(
	commissions settlement.CommissionRepository,
	payments settlement.SupplierPaymentRepository,
	orders settlement.OrderRepository,
	txScope TransactionScope,
	log *zap.Logger,
	opts ...Option,
) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		commissions: commissions,
		payments:    payments,
		orders:      orders,
		txScope:     txScope,
		metrics:     noopMetrics{},
		rate:        settlement.DefaultCommissionRate,
		logger:      log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := settlement.ValidateRate(s.rate); err != nil {
		return nil, err
	}
	return s, nil
}

// CommissionRate returns the rate applied to new commissions
func (s *Service) CommissionRate() decimal.Decimal {
	return s.rate
}

// RecordCommission computes the commission of a paid order, stores it as
// calculated and writes the amount back onto the order in one transaction.
// A second call for the same order fails with ErrCommissionAlreadyRecorded.
func (s *Service) RecordCommission(ctx context.Context, orderID uuid.UUID) (_ *CommissionResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "record_commission",
		telemetry.SpanAttrOrderID, orderID.String(),
	)
	defer telemetry.EndSpan(span, &err)

	var commission *settlement.Commission
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsPaid() {
			return settlement.ErrOrderNotPaid
		}

		c, err := settlement.NewCommission(order.ID, order.SellerID, order.TotalAmount, s.rate)
		if err != nil {
			return err
		}
		if err := c.Calculate(s.now()); err != nil {
			return err
		}
		if err := repos.Commissions().Create(ctx, c); err != nil {
			return err
		}
		if err := repos.Orders().UpdateCommissionAmount(ctx, order.ID, c.CommissionAmount); err != nil {
			return err
		}
		commission = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CommissionRecorded()
	s.log(logger.WithSellerID(ctx, commission.SellerID.String())).Info("commission recorded",
		zap.String("order_id", orderID.String()),
		zap.String("commission_amount", commission.CommissionAmount.StringFixed(2)),
		zap.String("seller_payout", commission.SellerPayout.StringFixed(2)),
	)

	resp := ToCommissionResponse(commission)
	return &resp, nil
}

// AggregatePayout sums the seller's calculated commissions in the period.
// An empty period yields zero totals, not an error.
func (s *Service) AggregatePayout(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (settlement.PayoutSummary, error) {
	rows, err := s.commissions.FindCalculatedBySeller(ctx, sellerID, period)
	if err != nil {
		return settlement.PayoutSummary{}, fmt.Errorf("load calculated commissions: %w", err)
	}
	return settlement.SummarizeCommissions(sellerID, period, rows), nil
}

// PreviewPayout is AggregatePayout in API form
func (s *Service) PreviewPayout(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (*PayoutSummaryResponse, error) {
	summary, err := s.AggregatePayout(ctx, sellerID, period)
	if err != nil {
		return nil, err
	}
	resp := ToPayoutSummaryResponse(summary)
	return &resp, nil
}

// CreateSupplierPayment batches the seller's unclaimed calculated commissions
// in the period into a pending payment and claims exactly those commissions
// for it. An empty period fails with ErrNoOrdersInPeriod. A seller has at most
// one payment that has not failed per period; a second one fails with
// ErrPaymentAlreadyExists.
func (s *Service) CreateSupplierPayment(ctx context.Context, sellerID uuid.UUID, period settlement.Period) (*SupplierPaymentResponse, error) {
	var payment *settlement.SupplierPayment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Payments().ExistsActiveForSellerPeriod(ctx, sellerID, period)
		if err != nil {
			return fmt.Errorf("check existing payment: %w", err)
		}
		if exists {
			return settlement.ErrPaymentAlreadyExists
		}

		rows, err := repos.Commissions().FindCalculatedBySeller(ctx, sellerID, period)
		if err != nil {
			return fmt.Errorf("load calculated commissions: %w", err)
		}
		p, err := settlement.NewSupplierPayment(settlement.SummarizeCommissions(sellerID, period, rows))
		if err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			if errors.Is(err, settlement.ErrPaymentAlreadyExists) {
				return err
			}
			return fmt.Errorf("save supplier payment: %w", err)
		}

		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		claimed, err := repos.Commissions().ClaimForPayment(ctx, p.ID, ids)
		if err != nil {
			return fmt.Errorf("claim commissions: %w", err)
		}
		if claimed != int64(len(ids)) {
			return settlement.ErrCommissionsClaimed
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentTransition(string(payment.Status))
	s.log(ctx).Info("supplier payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("seller_id", sellerID.String()),
		zap.Int("order_count", payment.OrderCount),
		zap.String("payout_amount", payment.PayoutAmount.StringFixed(2)),
	)

	resp := ToSupplierPaymentResponse(payment)
	return &resp, nil
}

// ProcessSupplierPayment completes the payment and marks the commissions it
// claimed paid under the same reference. Commissions calculated after the
// payment was created are not part of its totals and stay calculated. Both
// writes commit together. The completed event is published after commit.
func (s *Service) ProcessSupplierPayment(ctx context.Context, paymentID uuid.UUID, method, reference string) (_ *ProcessPaymentResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "process_supplier_payment",
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)
	defer telemetry.EndSpan(span, &err)

	var (
		payment *settlement.SupplierPayment
		settled int64
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := p.Complete(method, reference, now); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return err
		}
		n, err := repos.Commissions().MarkPaidByPayment(ctx, p.ID, reference, now)
		if err != nil {
			return err
		}
		payment, settled = p, n
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSellerID, payment.SellerID.String(),
		telemetry.SpanAttrAmount, payment.PayoutAmount.String(),
	)
	s.metrics.PaymentTransition(string(payment.Status))
	s.metrics.PayoutCompleted(payment.PayoutAmount.InexactFloat64())

	log := s.log(logger.WithSellerID(ctx, payment.SellerID.String()))
	if settled != int64(payment.OrderCount) {
		log.Warn("settled commission count differs from payment order count",
			zap.String("payment_id", payment.ID.String()),
			zap.Int64("settled", settled),
			zap.Int("order_count", payment.OrderCount),
		)
	}
	log.Info("supplier payment processed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("reference", reference),
		zap.Int64("commissions_settled", settled),
	)

	s.publishEvents(ctx, payment)

	return &ProcessPaymentResult{
		Payment:            ToSupplierPaymentResponse(payment),
		CommissionsSettled: settled,
	}, nil
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.L(logger.Ensure(ctx, s.logger))
}

// publishEvents hands queued events to the bus. The payment is already
// committed, so a failing subscriber is logged rather than returned.
func (s *Service) publishEvents(ctx context.Context, payment *settlement.SupplierPayment) {
	events := payment.DomainEvents()
	payment.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.log(ctx).Error("failed to publish settlement events",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

// BulkProcessPayments creates one payment per seller with paid orders in
// the period. Sellers that already have a payment for the period are skipped,
// so running the batch twice pays nobody twice. Failures are collected per
// seller and do not stop the batch.
func (s *Service) BulkProcessPayments(ctx context.Context, period settlement.Period) (*BulkResult, error) {
	sellers, err := s.orders.FindSellersWithPaidOrders(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("list sellers with paid orders: %w", err)
	}

	result := &BulkResult{Errors: []string{}, PaymentIDs: []uuid.UUID{}}
	for _, sellerID := range sellers {
		if err := ctx.Err(); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("seller %s: %v", sellerID, err))
			continue
		}
		payment, err := s.CreateSupplierPayment(ctx, sellerID, period)
		if errors.Is(err, settlement.ErrPaymentAlreadyExists) {
			result.Skipped++
			continue
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("seller %s: %v", sellerID, err))
			continue
		}
		result.Processed++
		result.PaymentIDs = append(result.PaymentIDs, payment.ID)
	}

	s.log(ctx).Info("bulk supplier payments finished",
		zap.Time("period_start", period.Start),
		zap.Time("period_end", period.End),
		zap.Int("sellers", len(sellers)),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// FailSupplierPayment records a failed payout. Its commissions stay
// calculated and are released so a later payment can claim them.
func (s *Service) FailSupplierPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*SupplierPaymentResponse, error) {
	var (
		payment  *settlement.SupplierPayment
		released int64
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := p.Fail(reason, s.now()); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return fmt.Errorf("save supplier payment: %w", err)
		}
		n, err := repos.Commissions().ReleaseFromPayment(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("release commissions: %w", err)
		}
		payment, released = p, n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentTransition(string(payment.Status))
	s.log(ctx).Warn("supplier payment failed",
		zap.String("payment_id", paymentID.String()),
		zap.String("reason", reason),
		zap.Int64("commissions_released", released),
	)
	resp := ToSupplierPaymentResponse(payment)
	return &resp, nil
}

// GetSupplierPayment returns one payment
func (s *Service) GetSupplierPayment(ctx context.Context, paymentID uuid.UUID) (*SupplierPaymentResponse, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	resp := ToSupplierPaymentResponse(payment)
	return &resp, nil
}

// ListSupplierPayments returns a page of payments
func (s *Service) ListSupplierPayments(ctx context.Context, filter settlement.SupplierPaymentFilter) (shared.Paginated[SupplierPaymentResponse], error) {
	rows, err := s.payments.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[SupplierPaymentResponse]{}, err
	}
	total, err := s.payments.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[SupplierPaymentResponse]{}, err
	}
	return shared.NewPaginated(ToSupplierPaymentResponses(rows), total, filter.Page), nil
}

// ListCommissions returns a page of commissions
func (s *Service) ListCommissions(ctx context.Context, filter settlement.CommissionFilter) (shared.Paginated[CommissionResponse], error) {
	rows, err := s.commissions.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[CommissionResponse]{}, err
	}
	total, err := s.commissions.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[CommissionResponse]{}, err
	}
	return shared.NewPaginated(ToCommissionResponses(rows), total, filter.Page), nil
}

// Reconcile settles commissions a completed payment claimed but left
// calculated, reusing the payment's reference and paid time. Commissions no
// payment claimed are never settled here.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	payments, err := s.payments.FindCompletedWithUnsettledCommissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("find unsettled payments: %w", err)
	}

	result := &ReconcileResult{Errors: []string{}}
	for i := range payments {
		p := &payments[i]
		result.PaymentsChecked++

		paidAt := s.now()
		if p.PaidAt != nil {
			paidAt = *p.PaidAt
		}
		n, err := s.commissions.MarkPaidByPayment(ctx, p.ID, p.PaymentReference, paidAt)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("payment %s: %v", p.ID, err))
			continue
		}
		result.CommissionsSettled += n
		s.log(ctx).Warn("reconciled commissions behind completed payment",
			zap.String("payment_id", p.ID.String()),
			zap.String("seller_id", p.SellerID.String()),
			zap.Int64("commissions_settled", n),
		)
	}

	if result.CommissionsSettled > 0 {
		s.metrics.CommissionsSettledByReconcile(result.CommissionsSettled)
	}
	return result, nil
}
