package catalogsync

import (
	"errors"

	"github.com/zetta/backend/internal/domain/shared"
)

// Domain errors for the catalog sync context
var (
	ErrSyncConfigNotFound    = shared.NewDomainError("SYNC_CONFIG_NOT_FOUND", "catalogsync: sync config not found")
	ErrSyncLogNotFound       = shared.NewDomainError("SYNC_LOG_NOT_FOUND", "catalogsync: sync log not found")
	ErrWebhookEventNotFound  = shared.NewDomainError("WEBHOOK_EVENT_NOT_FOUND", "catalogsync: webhook event not found")
	ErrProductNotFound       = shared.NewDomainError("PRODUCT_NOT_FOUND", "catalogsync: product not found")
	ErrProductExists         = shared.NewDomainError("PRODUCT_EXISTS", "catalogsync: seller already has a product with this external id")
	ErrSyncInProgress        = shared.NewDomainError("SYNC_IN_PROGRESS", "catalogsync: a sync is already running for this config")
	ErrInvalidSignature      = shared.NewDomainError("INVALID_SIGNATURE", "catalogsync: webhook signature verification failed")
	ErrWebhookNotConfigured  = shared.NewDomainError("WEBHOOK_NOT_CONFIGURED", "catalogsync: config does not accept webhook pushes")
	ErrSourceURLRequired     = shared.NewDomainError("SOURCE_URL_REQUIRED", "catalogsync: source_url is required for this sync type")
	ErrDuplicateWebhookEvent = shared.NewDomainError("DUPLICATE_WEBHOOK_EVENT", "catalogsync: webhook event already received")

	ErrInvalidSyncType      = errors.New("catalogsync: invalid sync type")
	ErrInvalidSchedule      = errors.New("catalogsync: invalid schedule")
	ErrInvalidSellerID      = errors.New("catalogsync: invalid seller ID")
	ErrInvalidEventType     = errors.New("catalogsync: invalid webhook event type")
	ErrMissingExternalID    = errors.New("catalogsync: record has no external id")
	ErrSyncLogFinalized     = errors.New("catalogsync: sync log already completed")
	ErrEventAlreadyHandled  = errors.New("catalogsync: webhook event already processed")
	ErrInvalidConfigStatus  = errors.New("catalogsync: operation not allowed in current config status")
	ErrUnexpectedPayload    = errors.New("catalogsync: unexpected source payload shape")
	ErrEmptyMappingRuleName = errors.New("catalogsync: mapping rule field names must not be empty")
)
