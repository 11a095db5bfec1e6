package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	syncapp "github.com/zetta/backend/internal/application/catalogsync"
	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/logger"
	"github.com/zetta/backend/internal/interfaces/http/dto"
)

// Webhook request headers
const (
	SignatureHeader = "X-Zetta-Signature"
	DeliveryHeader  = "X-Zetta-Delivery"
)

// WebhookReceiver accepts pushed catalog events
type WebhookReceiver interface {
	ReceiveWebhook(ctx context.Context, configID uuid.UUID, body []byte, signature, deliveryID string) (*syncapp.WebhookReceipt, error)
}

// WebhookHandler serves the unauthenticated webhook endpoint. Sources
// authenticate by signing the raw body with the config's secret.
type WebhookHandler struct {
	BaseHandler
	receiver WebhookReceiver
	maxBytes int64
	logger   *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(receiver WebhookReceiver, maxBytes int64, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &WebhookHandler{receiver: receiver, maxBytes: maxBytes, logger: log}
}

// duplicateReceipt is returned with 200 so that retrying sources stop
type duplicateReceipt struct {
	Duplicate  bool   `json:"duplicate"`
	DeliveryID string `json:"delivery_id,omitempty"`
}

// Receive handles POST /api/webhooks/catalog-sync/:config_id
func (h *WebhookHandler) Receive(c *gin.Context) {
	configID, ok := h.parseUUIDParam(c, "config_id")
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Webhook body too large")
			return
		}
		h.BadRequest(c, "Failed to read webhook body")
		return
	}
	if int64(len(body)) > h.maxBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Webhook body too large")
		return
	}

	deliveryID := c.GetHeader(DeliveryHeader)
	receipt, err := h.receiver.ReceiveWebhook(c.Request.Context(), configID, body, c.GetHeader(SignatureHeader), deliveryID)
	if err != nil {
		if errors.Is(err, catalogsync.ErrDuplicateWebhookEvent) {
			h.Success(c, duplicateReceipt{Duplicate: true, DeliveryID: deliveryID})
			return
		}
		logger.L(logger.Ensure(c.Request.Context(), h.logger)).Warn("webhook rejected",
			zap.String("config_id", configID.String()),
			zap.Error(err),
		)
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, receipt)
}
