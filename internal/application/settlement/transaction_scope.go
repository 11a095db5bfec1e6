package settlement

import (
	"context"

	"github.com/zetta/backend/internal/domain/settlement"
)

// TransactionScope runs settlement writes atomically.
// If fn returns an error, every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories hands out repositories bound to one open transaction.
type TransactionalRepositories interface {
	Commissions() settlement.CommissionRepository
	Payments() settlement.SupplierPaymentRepository
	Orders() settlement.OrderRepository
}
