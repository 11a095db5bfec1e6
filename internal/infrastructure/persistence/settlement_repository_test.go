package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsettlement "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

func calculatedCommission(t *testing.T, sellerID uuid.UUID, amount string, at time.Time) *settlement.Commission {
	t.Helper()
	c, err := settlement.NewCommission(uuid.New(), sellerID, decimal.RequireFromString(amount), decimal.RequireFromString("0.15"))
	require.NoError(t, err)
	require.NoError(t, c.Calculate(at))
	return c
}

func TestGormCommissionRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCommissionRepository(db)
	ctx := context.Background()

	c := calculatedCommission(t, uuid.New(), "100.00", utc(2024, 1, 10))
	require.NoError(t, repo.Create(ctx, c))

	t.Run("round trips amounts", func(t *testing.T) {
		got, err := repo.FindByOrderID(ctx, c.OrderID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.True(t, got.CommissionAmount.Equal(decimal.RequireFromString("15.00")))
		assert.True(t, got.SellerPayout.Equal(decimal.RequireFromString("85.00")))
		assert.Equal(t, settlement.CommissionStatusCalculated, got.Status)
	})

	t.Run("second commission for the same order is rejected", func(t *testing.T) {
		dup := calculatedCommission(t, c.SellerID, "50.00", utc(2024, 1, 11))
		dup.OrderID = c.OrderID
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, settlement.ErrCommissionAlreadyRecorded)
	})

	t.Run("missing commission", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, settlement.ErrCommissionNotFound)
		assert.True(t, errors.Is(err, settlement.ErrCommissionNotFound))
	})
}

func TestGormCommissionRepository_PeriodQueries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCommissionRepository(db)
	ctx := context.Background()

	seller := uuid.New()
	other := uuid.New()
	jan := settlement.MonthOf(utc(2024, 1, 15))

	inside1 := calculatedCommission(t, seller, "100.00", utc(2024, 1, 1))
	inside2 := calculatedCommission(t, seller, "200.00", utc(2024, 1, 31).Add(23*time.Hour))
	boundary := calculatedCommission(t, seller, "300.00", utc(2024, 2, 1))
	foreign := calculatedCommission(t, other, "400.00", utc(2024, 1, 5))
	pending, err := settlement.NewCommission(uuid.New(), seller, decimal.NewFromInt(10), decimal.RequireFromString("0.15"))
	require.NoError(t, err)

	for _, c := range []*settlement.Commission{inside1, inside2, boundary, foreign, pending} {
		require.NoError(t, repo.Create(ctx, c))
	}

	t.Run("finds calculated commissions in half-open window", func(t *testing.T) {
		got, err := repo.FindCalculatedBySeller(ctx, seller, jan)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, inside1.ID, got[0].ID)
		assert.Equal(t, inside2.ID, got[1].ID)
	})

	paymentID := uuid.New()

	t.Run("claims only unclaimed calculated commissions", func(t *testing.T) {
		n, err := repo.ClaimForPayment(ctx, paymentID, []uuid.UUID{inside1.ID, inside2.ID, pending.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := repo.FindByID(ctx, inside1.ID)
		require.NoError(t, err)
		require.NotNil(t, got.SupplierPaymentID)
		assert.Equal(t, paymentID, *got.SupplierPaymentID)

		again, err := repo.ClaimForPayment(ctx, uuid.New(), []uuid.UUID{inside1.ID})
		require.NoError(t, err)
		assert.Zero(t, again)

		unclaimed, err := repo.FindCalculatedBySeller(ctx, seller, jan)
		require.NoError(t, err)
		assert.Empty(t, unclaimed)

		none, err := repo.ClaimForPayment(ctx, paymentID, nil)
		require.NoError(t, err)
		assert.Zero(t, none)
	})

	t.Run("release returns commissions to the pool", func(t *testing.T) {
		n, err := repo.ReleaseFromPayment(ctx, paymentID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		unclaimed, err := repo.FindCalculatedBySeller(ctx, seller, jan)
		require.NoError(t, err)
		assert.Len(t, unclaimed, 2)

		_, err = repo.ClaimForPayment(ctx, paymentID, []uuid.UUID{inside1.ID, inside2.ID})
		require.NoError(t, err)
	})

	t.Run("marks only the payment's commissions paid", func(t *testing.T) {
		paidAt := utc(2024, 2, 5)
		n, err := repo.MarkPaidByPayment(ctx, paymentID, "PAY-1", paidAt)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := repo.FindByID(ctx, inside1.ID)
		require.NoError(t, err)
		assert.Equal(t, settlement.CommissionStatusPaid, got.Status)
		assert.Equal(t, "PAY-1", got.PaymentReference)

		untouched, err := repo.FindByID(ctx, boundary.ID)
		require.NoError(t, err)
		assert.Equal(t, settlement.CommissionStatusCalculated, untouched.Status)

		again, err := repo.MarkPaidByPayment(ctx, paymentID, "PAY-2", paidAt)
		require.NoError(t, err)
		assert.Zero(t, again)

		released, err := repo.ReleaseFromPayment(ctx, paymentID)
		require.NoError(t, err)
		assert.Zero(t, released)
	})

	t.Run("filters and counts", func(t *testing.T) {
		filter := settlement.CommissionFilter{SellerID: &seller, Status: settlement.CommissionStatusPaid}
		n, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		items, err := repo.FindAll(ctx, settlement.CommissionFilter{Page: shared.Page{Page: 1, PageSize: 2}})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}

func TestGormSupplierPaymentRepository_FindCompletedWithUnsettledCommissions(t *testing.T) {
	db := setupTestDB(t)
	commissions := NewGormCommissionRepository(db)
	payments := NewGormSupplierPaymentRepository(db)
	ctx := context.Background()

	jan := settlement.MonthOf(utc(2024, 1, 1))
	settled := uuid.New()
	drifted := uuid.New()

	byPayment := map[uuid.UUID]uuid.UUID{}
	for _, seller := range []uuid.UUID{settled, drifted} {
		c := calculatedCommission(t, seller, "100.00", utc(2024, 1, 10))
		require.NoError(t, commissions.Create(ctx, c))
		summary := settlement.SummarizeCommissions(seller, jan, []settlement.Commission{*c})
		p, err := settlement.NewSupplierPayment(summary)
		require.NoError(t, err)
		require.NoError(t, p.Complete("bank_transfer", "REF-"+seller.String()[:8], utc(2024, 2, 2)))
		require.NoError(t, payments.Save(ctx, p))
		_, err = commissions.ClaimForPayment(ctx, p.ID, []uuid.UUID{c.ID})
		require.NoError(t, err)
		byPayment[seller] = p.ID
	}
	_, err := commissions.MarkPaidByPayment(ctx, byPayment[settled], "REF", utc(2024, 2, 2))
	require.NoError(t, err)

	// calculated inside the settled seller's period but never claimed
	late := calculatedCommission(t, settled, "30.00", utc(2024, 1, 20))
	require.NoError(t, commissions.Create(ctx, late))

	got, err := payments.FindCompletedWithUnsettledCommissions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, drifted, got[0].SellerID)

	loaded, err := payments.FindByID(ctx, got[0].ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.PaymentStatusCompleted, loaded.Status)
	assert.True(t, loaded.PayoutAmount.Equal(decimal.RequireFromString("85.00")))

	_, err = payments.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, settlement.ErrPaymentNotFound)
}

func TestGormSupplierPaymentRepository_OneActivePaymentPerPeriod(t *testing.T) {
	db := setupTestDB(t)
	commissions := NewGormCommissionRepository(db)
	payments := NewGormSupplierPaymentRepository(db)
	ctx := context.Background()

	seller := uuid.New()
	jan := settlement.MonthOf(utc(2024, 1, 1))
	c := calculatedCommission(t, seller, "100.00", utc(2024, 1, 10))
	require.NoError(t, commissions.Create(ctx, c))
	summary := settlement.SummarizeCommissions(seller, jan, []settlement.Commission{*c})

	first, err := settlement.NewSupplierPayment(summary)
	require.NoError(t, err)
	require.NoError(t, payments.Save(ctx, first))

	exists, err := payments.ExistsActiveForSellerPeriod(ctx, seller, jan)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = payments.ExistsActiveForSellerPeriod(ctx, seller, settlement.MonthOf(utc(2024, 2, 1)))
	require.NoError(t, err)
	assert.False(t, exists)

	second, err := settlement.NewSupplierPayment(summary)
	require.NoError(t, err)
	assert.ErrorIs(t, payments.Save(ctx, second), settlement.ErrPaymentAlreadyExists)

	require.NoError(t, first.Fail("bank rejected", utc(2024, 2, 3)))
	require.NoError(t, payments.Save(ctx, first))

	exists, err = payments.ExistsActiveForSellerPeriod(ctx, seller, jan)
	require.NoError(t, err)
	assert.False(t, exists)

	retry, err := settlement.NewSupplierPayment(summary)
	require.NoError(t, err)
	assert.NoError(t, payments.Save(ctx, retry))
}

func newSettlementService(t *testing.T, db *gorm.DB, now *time.Time) *appsettlement.Service {
	t.Helper()
	svc, err := appsettlement.NewService(
		NewGormCommissionRepository(db),
		NewGormSupplierPaymentRepository(db),
		NewGormOrderRepository(db),
		NewGormSettlementTransactionScope(db),
		nil,
		appsettlement.WithClock(func() time.Time { return *now }),
	)
	require.NoError(t, err)
	return svc
}

func TestSettlementService_LateCommissionIsNotSettledByReconcile(t *testing.T) {
	db := setupTestDB(t)
	commissions := NewGormCommissionRepository(db)
	ctx := context.Background()
	now := utc(2024, 1, 15)
	svc := newSettlementService(t, db, &now)

	seller := uuid.New()
	jan := settlement.MonthOf(utc(2024, 1, 1))
	early := calculatedCommission(t, seller, "100.00", utc(2024, 1, 10))
	require.NoError(t, commissions.Create(ctx, early))

	payment, err := svc.CreateSupplierPayment(ctx, seller, jan)
	require.NoError(t, err)
	assert.True(t, payment.PayoutAmount.Equal(decimal.RequireFromString("85.00")))

	late := calculatedCommission(t, seller, "50.00", utc(2024, 1, 20))
	require.NoError(t, commissions.Create(ctx, late))

	now = utc(2024, 1, 21)
	processed, err := svc.ProcessSupplierPayment(ctx, payment.ID, "bank_transfer", "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), processed.CommissionsSettled)

	result, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.PaymentsChecked)
	assert.Zero(t, result.CommissionsSettled)

	got, err := commissions.FindByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.CommissionStatusCalculated, got.Status)
	assert.Empty(t, got.PaymentReference)
	assert.Nil(t, got.SupplierPaymentID)

	paid, err := commissions.FindByID(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.CommissionStatusPaid, paid.Status)
	assert.Equal(t, "PAY-1", paid.PaymentReference)
}

func TestSettlementService_ReconcileSettlesClaimedCommissions(t *testing.T) {
	db := setupTestDB(t)
	commissions := NewGormCommissionRepository(db)
	ctx := context.Background()
	now := utc(2024, 2, 1)
	svc := newSettlementService(t, db, &now)

	seller := uuid.New()
	jan := settlement.MonthOf(utc(2024, 1, 1))
	c := calculatedCommission(t, seller, "40.00", utc(2024, 1, 5))
	require.NoError(t, commissions.Create(ctx, c))

	payment, err := svc.CreateSupplierPayment(ctx, seller, jan)
	require.NoError(t, err)

	// the payment completed without its commissions being settled
	require.NoError(t, db.Model(&models.SupplierPaymentModel{}).Where("id = ?", payment.ID).
		Updates(map[string]any{"status": settlement.PaymentStatusCompleted, "payment_reference": "PAY-7", "paid_at": utc(2024, 2, 2)}).Error)

	result, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PaymentsChecked)
	assert.Equal(t, int64(1), result.CommissionsSettled)

	got, err := commissions.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.CommissionStatusPaid, got.Status)
	assert.Equal(t, "PAY-7", got.PaymentReference)
}

func TestSettlementService_SecondPaymentForPeriod(t *testing.T) {
	db := setupTestDB(t)
	commissions := NewGormCommissionRepository(db)
	ctx := context.Background()
	now := utc(2024, 2, 1)
	svc := newSettlementService(t, db, &now)

	seller := uuid.New()
	jan := settlement.MonthOf(utc(2024, 1, 1))
	require.NoError(t, commissions.Create(ctx, calculatedCommission(t, seller, "100.00", utc(2024, 1, 10))))

	first, err := svc.CreateSupplierPayment(ctx, seller, jan)
	require.NoError(t, err)

	_, err = svc.CreateSupplierPayment(ctx, seller, jan)
	assert.ErrorIs(t, err, settlement.ErrPaymentAlreadyExists)

	_, err = svc.FailSupplierPayment(ctx, first.ID, "account closed")
	require.NoError(t, err)

	retry, err := svc.CreateSupplierPayment(ctx, seller, jan)
	require.NoError(t, err)
	assert.True(t, retry.PayoutAmount.Equal(decimal.RequireFromString("85.00")))
	assert.NotEqual(t, first.ID, retry.ID)
}

func TestGormOrderRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	seller := uuid.New()
	paidAt := utc(2024, 3, 3)
	order := &models.OrderModel{
		BaseModel:     models.BaseModel{ID: uuid.New(), CreatedAt: paidAt, UpdatedAt: paidAt},
		SellerID:      seller,
		TotalAmount:   decimal.RequireFromString("250.00"),
		PaymentStatus: settlement.OrderPaymentStatusPaid,
		PaidAt:        &paidAt,
	}
	unpaid := &models.OrderModel{
		BaseModel:     models.BaseModel{ID: uuid.New(), CreatedAt: paidAt, UpdatedAt: paidAt},
		SellerID:      uuid.New(),
		TotalAmount:   decimal.RequireFromString("10.00"),
		PaymentStatus: "pending",
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Create(unpaid).Error)

	t.Run("finds order", func(t *testing.T) {
		got, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, got.IsPaid())
		assert.True(t, got.CommissionAmount.IsZero())
	})

	t.Run("writes commission amount", func(t *testing.T) {
		require.NoError(t, repo.UpdateCommissionAmount(ctx, order.ID, decimal.RequireFromString("37.50")))
		got, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, got.CommissionAmount.Equal(decimal.RequireFromString("37.50")))

		err = repo.UpdateCommissionAmount(ctx, uuid.New(), decimal.Zero)
		assert.ErrorIs(t, err, settlement.ErrOrderNotFound)
	})

	t.Run("lists sellers with paid orders in period", func(t *testing.T) {
		sellers, err := repo.FindSellersWithPaidOrders(ctx, settlement.MonthOf(paidAt))
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{seller}, sellers)

		none, err := repo.FindSellersWithPaidOrders(ctx, settlement.MonthOf(utc(2024, 4, 1)))
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestGormSettlementTransactionScope(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormSettlementTransactionScope(db)
	ctx := context.Background()
	c := calculatedCommission(t, uuid.New(), "80.00", utc(2024, 5, 2))

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
			require.NoError(t, repos.Commissions().Create(ctx, c))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = NewGormCommissionRepository(db).FindByID(ctx, c.ID)
		assert.ErrorIs(t, err, settlement.ErrCommissionNotFound)
	})

	t.Run("commits on success", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
			return repos.Commissions().Create(ctx, c)
		})
		require.NoError(t, err)

		_, err = NewGormCommissionRepository(db).FindByID(ctx, c.ID)
		assert.NoError(t, err)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New(`pq: duplicate key value violates unique constraint "x"`)))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: commissions.order_id")))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}

func TestGormSellerDirectory_FindContact(t *testing.T) {
	db := setupTestDB(t)
	dir := NewGormSellerDirectory(db)
	ctx := context.Background()

	withBusiness := models.NewSellerModel(uuid.New(), "billing@medsupply.test", "MedSupply LLC")
	contactOnly := models.NewSellerModel(uuid.New(), "jo@example.test", "")
	contactOnly.ContactName = "Jo Rivera"
	require.NoError(t, db.Create(withBusiness).Error)
	require.NoError(t, db.Create(contactOnly).Error)

	got, err := dir.FindContact(ctx, withBusiness.ID)
	require.NoError(t, err)
	assert.Equal(t, "billing@medsupply.test", got.Email)
	assert.Equal(t, "MedSupply LLC", got.Name)

	got, err = dir.FindContact(ctx, contactOnly.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jo Rivera", got.Name)

	got, err = dir.FindContact(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
