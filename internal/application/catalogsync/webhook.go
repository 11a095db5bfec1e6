package catalogsync

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/catalogsource"
	"github.com/zetta/backend/internal/infrastructure/telemetry"
)

// Webhook outcomes reported to metrics
const (
	webhookOutcomeProcessed = "processed"
	webhookOutcomeFailed    = "failed"
	webhookOutcomeDuplicate = "duplicate"
	webhookOutcomeRejected  = "rejected"
)

// webhookEnvelope is the body a source POSTs. Data holds one product record
// for product events, or the whole catalog for catalog.full_sync.
type webhookEnvelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
}

func (e webhookEnvelope) eventType() catalogsync.WebhookEventType {
	if e.EventType != "" {
		return catalogsync.WebhookEventType(e.EventType)
	}
	return catalogsync.WebhookEventType(e.Type)
}

// VerifyWebhookSignature checks an HMAC-SHA256 of body keyed with secret.
// The signature may be hex or base64 encoded, optionally prefixed with
// "sha256=". An empty secret never verifies.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return false
	}
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, decode := range []func(string) ([]byte, error){
		hex.DecodeString,
		base64.StdEncoding.DecodeString,
		base64.RawStdEncoding.DecodeString,
		base64.URLEncoding.DecodeString,
		base64.RawURLEncoding.DecodeString,
	} {
		got, err := decode(signature)
		if err == nil && hmac.Equal(got, expected) {
			return true
		}
	}
	return false
}

// SignWebhookBody returns the hex signature a source should send
func SignWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ReceiveWebhook verifies, records and processes one pushed event.
// deliveryID, when set, takes precedence over the envelope id as the dedupe
// key. A repeated delivery fails with ErrDuplicateWebhookEvent. Processing
// failures are stored on the event and reported in the receipt.
func (s *Service) ReceiveWebhook(ctx context.Context, configID uuid.UUID, body []byte, signature, deliveryID string) (_ *WebhookReceipt, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalogsync", "receive_webhook",
		telemetry.SpanAttrConfigID, configID.String(),
	)
	defer telemetry.EndSpan(span, &err)

	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	if !cfg.AcceptsWebhooks() {
		s.metrics.ObserveWebhook("", webhookOutcomeRejected)
		return nil, catalogsync.ErrWebhookNotConfigured
	}
	if !VerifyWebhookSignature(cfg.WebhookSecret, body, signature) {
		s.metrics.ObserveWebhook("", webhookOutcomeRejected)
		s.log(ctx).Warn("webhook signature rejected", zap.String("config_id", configID.String()))
		return nil, catalogsync.ErrInvalidSignature
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		s.metrics.ObserveWebhook("", webhookOutcomeRejected)
		return nil, err
	}
	eventType := env.eventType()
	telemetry.SetAttributes(span, telemetry.SpanAttrEventType, string(eventType))

	externalID := strings.TrimSpace(deliveryID)
	if externalID == "" {
		externalID = env.ID
	}

	event, err := catalogsync.NewWebhookEvent(cfg.ID, externalID, eventType, json.RawMessage(body))
	if err != nil {
		s.metrics.ObserveWebhook(string(eventType), webhookOutcomeRejected)
		return nil, err
	}

	dedupeKey := ""
	if externalID != "" && s.dedupe != nil {
		dedupeKey = "webhook:" + cfg.ID.String() + ":" + externalID
		fresh, err := s.dedupe.MarkProcessed(ctx, dedupeKey, s.dedupeTTL)
		switch {
		case err != nil:
			// the unique index on (config_id, external_event_id) still catches repeats
			s.log(ctx).Warn("webhook dedupe store unavailable", zap.Error(err))
			dedupeKey = ""
		case !fresh:
			s.metrics.ObserveWebhook(string(eventType), webhookOutcomeDuplicate)
			return nil, catalogsync.ErrDuplicateWebhookEvent
		}
	}

	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, catalogsync.ErrDuplicateWebhookEvent) {
			s.metrics.ObserveWebhook(string(eventType), webhookOutcomeDuplicate)
			return nil, err
		}
		if dedupeKey != "" {
			_ = s.dedupe.Forget(context.WithoutCancel(ctx), dedupeKey)
		}
		return nil, fmt.Errorf("store webhook event: %w", err)
	}

	// The event is stored and its key claimed, so processing must not die
	// with the request. A lock conflict leaves it unprocessed for replay.
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lockTTL)
	defer cancel()
	if err := s.ProcessWebhookEvent(procCtx, event); err != nil {
		s.log(ctx).Warn("webhook event not applied",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.EventType)),
			zap.Bool("stored_for_replay", !event.Processed),
			zap.Error(err),
		)
	}

	receipt := &WebhookReceipt{
		EventID:         event.ID,
		ExternalEventID: event.ExternalEventID,
		EventType:       string(event.EventType),
		Processed:       event.Processed,
		Error:           event.Error,
	}
	return receipt, nil
}

func decodeEnvelope(body []byte) (webhookEnvelope, error) {
	var env webhookEnvelope
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&env); err != nil {
		return env, fmt.Errorf("%w: %v", catalogsync.ErrUnexpectedPayload, err)
	}
	return env, nil
}

// ProcessWebhookEvent applies a stored event to the product store and marks
// it processed, recording the error if any step failed.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event *catalogsync.WebhookEvent) error {
	cfg, procErr := s.configs.FindByID(ctx, event.ConfigID)
	if procErr == nil {
		_, procErr = s.execute(ctx, cfg, catalogsync.TriggerWebhook, func(ctx context.Context, _ *catalogsync.SyncLog, counters *catalogsync.RunCounters, diag *catalogsync.SyncDiagnostics) error {
			diag.Format = catalogsource.FormatJSON
			diag.EventID = event.ExternalEventID
			diag.SourceBytes = len(event.Payload)
			return s.applyWebhookEvent(ctx, cfg, event, counters, diag)
		})
	}

	if errors.Is(procErr, catalogsync.ErrSyncInProgress) {
		// left unprocessed so a later pass can pick it up
		s.metrics.ObserveWebhook(string(event.EventType), webhookOutcomeFailed)
		return procErr
	}

	if err := event.MarkProcessed(procErr, s.now()); err != nil {
		return err
	}
	if err := s.events.Save(context.WithoutCancel(ctx), event); err != nil {
		return fmt.Errorf("save webhook event: %w", err)
	}

	outcome := webhookOutcomeProcessed
	if procErr != nil {
		outcome = webhookOutcomeFailed
	}
	s.metrics.ObserveWebhook(string(event.EventType), outcome)
	return procErr
}

func (s *Service) applyWebhookEvent(ctx context.Context, cfg *catalogsync.CatalogSyncConfig, event *catalogsync.WebhookEvent, counters *catalogsync.RunCounters, diag *catalogsync.SyncDiagnostics) error {
	env, err := decodeEnvelope(event.Payload)
	if err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: webhook has no data", catalogsync.ErrUnexpectedPayload)
	}

	switch event.EventType {
	case catalogsync.WebhookEventProductCreated, catalogsync.WebhookEventProductUpdated:
		record, err := decodeRecord(env.Data)
		if err != nil {
			return err
		}
		diag.RecordCount = 1
		return s.SyncProduct(ctx, cfg, record, counters)

	case catalogsync.WebhookEventProductDeleted:
		record, err := decodeRecord(env.Data)
		if err != nil {
			return err
		}
		externalID, err := catalogsync.ExternalID(record, cfg.MappingRules)
		if err != nil {
			externalID, err = catalogsync.ExternalID(record, catalogsync.MappingRules{catalogsync.ExternalIDField: catalogsync.ExternalIDField})
		}
		if err != nil {
			counters.Skipped++
			return err
		}
		diag.RecordCount = 1
		return s.RemoveProduct(ctx, cfg, externalID, counters)

	case catalogsync.WebhookEventFullSync:
		parsed, err := catalogsource.ParseJSON(env.Data)
		if err != nil {
			return err
		}
		diag.RecordCount = len(parsed.Records)
		counters.Skipped += parsed.Dropped
		return s.FullCatalogSync(ctx, cfg, parsed.Records, counters)
	}
	return catalogsync.ErrInvalidEventType
}

func decodeRecord(data json.RawMessage) (catalogsync.ExternalRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil || record == nil {
		return nil, fmt.Errorf("%w: webhook data must be an object", catalogsync.ErrUnexpectedPayload)
	}
	return catalogsync.ExternalRecord(record), nil
}

// ReplayPendingWebhooks processes events stored but never handled, for
// example because a sync held the config lock when they arrived. Each config
// gets at most perConfig events per pass so one backlog cannot starve the
// rest. Events of paused configs, or of configs that no longer accept
// webhooks, stay pending.
func (s *Service) ReplayPendingWebhooks(ctx context.Context, perConfig int) (int, error) {
	configIDs, err := s.events.ConfigsWithUnprocessed(ctx)
	if err != nil {
		return 0, fmt.Errorf("find configs with unprocessed webhook events: %w", err)
	}

	handled := 0
	for _, configID := range configIDs {
		if err := ctx.Err(); err != nil {
			return handled, err
		}
		cfg, err := s.configs.FindByID(ctx, configID)
		if err != nil {
			s.log(ctx).Warn("skipping webhook replay for config",
				zap.String("config_id", configID.String()),
				zap.Error(err),
			)
			continue
		}
		if !cfg.AcceptsWebhooks() {
			continue
		}

		pending, err := s.events.FindUnprocessedByConfig(ctx, configID, perConfig)
		if err != nil {
			return handled, fmt.Errorf("find unprocessed webhook events: %w", err)
		}
		for i := range pending {
			if err := ctx.Err(); err != nil {
				return handled, err
			}
			err := s.ProcessWebhookEvent(ctx, &pending[i])
			if errors.Is(err, catalogsync.ErrSyncInProgress) {
				// the lock is still held, the rest of this config waits too
				break
			}
			handled++
		}
	}
	return handled, nil
}
