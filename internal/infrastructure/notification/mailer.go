// Package notification delivers seller emails through SendGrid, or to the
// log when no API key is configured.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	settlementapp "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/infrastructure/config"
)

var (
	_ settlementapp.Mailer = (*SendGridMailer)(nil)
	_ settlementapp.Mailer = (*LogMailer)(nil)
)

// ErrDeliveryRejected is returned when SendGrid answers with an error status
var ErrDeliveryRejected = errors.New("notification: email provider rejected the message")

const sendEndpoint = "/v3/mail/send"

// SendGridMailer sends mail through the SendGrid v3 API
type SendGridMailer struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
	logger   *zap.Logger
}

// SendGridOption configures a SendGridMailer
type SendGridOption func(*sendGridOptions)

type sendGridOptions struct {
	host   string
	logger *zap.Logger
}

// WithHost points the client at another API host
func WithHost(host string) SendGridOption {
	return func(o *sendGridOptions) {
		o.host = host
	}
}

// WithLogger sets the mailer logger
func WithLogger(l *zap.Logger) SendGridOption {
	return func(o *sendGridOptions) {
		o.logger = l
	}
}

// NewSendGridMailer creates a mailer for the given API key
func NewSendGridMailer(cfg config.EmailConfig, opts ...SendGridOption) (*SendGridMailer, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	o := sendGridOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	request := sendgrid.GetRequest(cfg.SendGridAPIKey, sendEndpoint, o.host)
	request.Method = "POST"

	return &SendGridMailer{
		client:   &sendgrid.Client{Request: request},
		fromName: cfg.FromName,
		fromAddr: cfg.FromAddress,
		logger:   o.logger,
	}, nil
}

// Send delivers one message. Any status >= 400 is reported as ErrDeliveryRejected.
func (m *SendGridMailer) Send(ctx context.Context, msg settlementapp.EmailMessage) error {
	from := mail.NewEmail(m.fromName, m.fromAddr)
	to := mail.NewEmail(msg.ToName, msg.ToAddress)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		m.logger.Warn("sendgrid rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("body", resp.Body),
		)
		return fmt.Errorf("%w: status %d", ErrDeliveryRejected, resp.StatusCode)
	}

	m.logger.Info("email sent",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and never fails
func (m *LogMailer) Send(_ context.Context, msg settlementapp.EmailMessage) error {
	m.logger.Info("email not sent, no provider configured",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// NewMailer picks SendGrid when a key is configured and the log mailer otherwise
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) (settlementapp.Mailer, error) {
	if cfg.SendGridAPIKey == "" {
		return NewLogMailer(logger), nil
	}
	return NewSendGridMailer(cfg, WithLogger(logger))
}
