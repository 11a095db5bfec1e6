package persistence

import (
	"context"

	appsettlement "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/domain/settlement"
	"gorm.io/gorm"
)

// GormSettlementTransactionScope implements the settlement TransactionScope using GORM transactions.
type GormSettlementTransactionScope struct {
	db *gorm.DB
}

// NewGormSettlementTransactionScope creates a new GormSettlementTransactionScope.
func NewGormSettlementTransactionScope(db *gorm.DB) *GormSettlementTransactionScope {
	return &GormSettlementTransactionScope{db: db}
}

// Execute runs fn inside a database transaction and commits when it returns nil.
func (s *GormSettlementTransactionScope) Execute(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&settlementTxRepositories{tx: tx})
	})
}

type settlementTxRepositories struct {
	tx *gorm.DB
}

func (r *settlementTxRepositories) Commissions() settlement.CommissionRepository {
	return NewGormCommissionRepository(r.tx)
}

func (r *settlementTxRepositories) Payments() settlement.SupplierPaymentRepository {
	return NewGormSupplierPaymentRepository(r.tx)
}

func (r *settlementTxRepositories) Orders() settlement.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

var (
	_ appsettlement.TransactionScope          = (*GormSettlementTransactionScope)(nil)
	_ appsettlement.TransactionalRepositories = (*settlementTxRepositories)(nil)
)
