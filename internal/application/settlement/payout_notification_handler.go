package settlement

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
)

var payoutEmailHTML = template.Must(template.New("payout").Parse(`<p>Hello {{.Name}},</p>
<p>Your payout of <strong>${{.Amount}}</strong> for {{.PeriodStart}} to {{.PeriodEnd}} has been sent.</p>
<table>
  <tr><td>Orders</td><td>{{.OrderCount}}</td></tr>
  <tr><td>Total sales</td><td>${{.TotalSales}}</td></tr>
  <tr><td>Platform commission</td><td>${{.TotalCommission}}</td></tr>
  <tr><td>Payment method</td><td>{{.Method}}</td></tr>
  <tr><td>Reference</td><td>{{.Reference}}</td></tr>
</table>
<p>Zetta Marketplace</p>`))

type payoutEmailData struct {
	Name            string
	Amount          string
	TotalSales      string
	TotalCommission string
	OrderCount      int
	PeriodStart     string
	PeriodEnd       string
	Method          string
	Reference       string
}

// PayoutNotificationHandler emails the seller once a supplier payment completes
type PayoutNotificationHandler struct {
	sellers SellerDirectory
	mailer  Mailer
	logger  *zap.Logger
}

// NewPayoutNotificationHandler creates the handler
func NewPayoutNotificationHandler(sellers SellerDirectory, mailer Mailer, logger *zap.Logger) *PayoutNotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutNotificationHandler{
		sellers: sellers,
		mailer:  mailer,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PayoutNotificationHandler) EventTypes() []string {
	return []string{settlement.EventTypeSupplierPaymentCompleted}
}

// Handle sends the payout notice. A seller without an email address is skipped.
func (h *PayoutNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*settlement.SupplierPaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			settlement.EventTypeSupplierPaymentCompleted, event.EventType())
	}

	contact, err := h.sellers.FindContact(ctx, completed.SellerID())
	if err != nil {
		return fmt.Errorf("find seller contact: %w", err)
	}
	if contact == nil || strings.TrimSpace(contact.Email) == "" {
		h.logger.Warn("seller has no email address, payout notice skipped",
			zap.String("seller_id", completed.SellerID().String()),
			zap.String("payment_id", completed.AggregateID().String()),
		)
		return nil
	}

	msg, err := buildPayoutEmail(contact, completed)
	if err != nil {
		return err
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send payout notice: %w", err)
	}

	h.logger.Info("payout notice sent",
		zap.String("seller_id", completed.SellerID().String()),
		zap.String("payment_id", completed.AggregateID().String()),
		zap.String("reference", completed.PaymentReference),
	)
	return nil
}

func buildPayoutEmail(contact *SellerContact, e *settlement.SupplierPaymentCompletedEvent) (EmailMessage, error) {
	name := contact.Name
	if name == "" {
		name = "there"
	}
	data := payoutEmailData{
		Name:            name,
		Amount:          e.PayoutAmount.StringFixed(2),
		TotalSales:      e.TotalSales.StringFixed(2),
		TotalCommission: e.TotalCommission.StringFixed(2),
		OrderCount:      e.OrderCount,
		PeriodStart:     e.PeriodStart.Format("2006-01-02"),
		PeriodEnd:       e.PeriodEnd.Format("2006-01-02"),
		Method:          e.PaymentMethod,
		Reference:       e.PaymentReference,
	}

	var html strings.Builder
	if err := payoutEmailHTML.Execute(&html, data); err != nil {
		return EmailMessage{}, fmt.Errorf("render payout email: %w", err)
	}
	plain := fmt.Sprintf(
		"Hello %s,\n\nYour payout of $%s for %s to %s has been sent.\nOrders: %d\nTotal sales: $%s\nPlatform commission: $%s\nPayment method: %s\nReference: %s\n",
		data.Name, data.Amount, data.PeriodStart, data.PeriodEnd, data.OrderCount,
		data.TotalSales, data.TotalCommission, data.Method, data.Reference,
	)

	return EmailMessage{
		ToAddress: contact.Email,
		ToName:    contact.Name,
		Subject:   fmt.Sprintf("Your Zetta payout of $%s is on its way", data.Amount),
		HTML:      html.String(),
		PlainText: plain,
	}, nil
}

var _ shared.EventHandler = (*PayoutNotificationHandler)(nil)
