package settlement

import (
	"context"

	"github.com/google/uuid"
)

// EmailMessage is one transactional email
type EmailMessage struct {
	ToAddress string
	ToName    string
	Subject   string
	HTML      string
	PlainText string
}

// Mailer is the email transport. Delivery is fire-and-forget beyond the
// immediate success or failure of the call.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SellerContact is where payout notices for a seller go
type SellerContact struct {
	SellerID uuid.UUID
	Email    string
	Name     string
}

// SellerDirectory resolves seller contact details owned by the storefront
type SellerDirectory interface {
	FindContact(ctx context.Context, sellerID uuid.UUID) (*SellerContact, error)
}

// SettlementMetrics receives settlement counters. Implementations must be safe for concurrent use.
type SettlementMetrics interface {
	CommissionRecorded()
	PaymentTransition(status string)
	PayoutCompleted(amount float64)
	CommissionsSettledByReconcile(n int64)
}

type noopMetrics struct{}

func (noopMetrics) CommissionRecorded()                 {}
func (noopMetrics) PaymentTransition(string)            {}
func (noopMetrics) PayoutCompleted(float64)             {}
func (noopMetrics) CommissionsSettledByReconcile(int64) {}
