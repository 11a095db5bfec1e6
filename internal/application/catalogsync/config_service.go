package catalogsync

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/domain/shared"
)

// CreateConfig registers a catalog source. Webhook sources without a secret
// get a generated one, returned only in this response.
func (s *Service) CreateConfig(ctx context.Context, cmd CreateConfigCommand) (*CreateConfigResult, error) {
	if err := s.validate.StructCtx(ctx, cmd); err != nil {
		return nil, err
	}

	cfg, err := catalogsync.NewCatalogSyncConfig(
		cmd.SellerID,
		catalogsync.SyncType(cmd.SyncType),
		cmd.SourceURL,
		catalogsync.Schedule(cmd.Schedule),
		catalogsync.MappingRules(cmd.MappingRules),
	)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = cmd.APIKey
	cfg.AutoApprove = cmd.AutoApprove
	cfg.WebhookSecret = cmd.WebhookSecret

	generated := ""
	if cfg.SyncType == catalogsync.SyncTypeWebhook && cfg.WebhookSecret == "" {
		if generated, err = newWebhookSecret(); err != nil {
			return nil, err
		}
		cfg.WebhookSecret = generated
	}

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save sync config: %w", err)
	}

	s.log(ctx).Info("catalog sync config created",
		zap.String("config_id", cfg.ID.String()),
		zap.String("seller_id", cfg.SellerID.String()),
		zap.String("sync_type", string(cfg.SyncType)),
		zap.String("schedule", string(cfg.Schedule)),
	)
	return &CreateConfigResult{
		ConfigResponse: ToConfigResponse(cfg, s.baseURL),
		WebhookSecret:  generated,
	}, nil
}

func newWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// UpdateConfig applies the set fields of cmd
func (s *Service) UpdateConfig(ctx context.Context, id uuid.UUID, cmd UpdateConfigCommand) (*ConfigResponse, error) {
	if err := s.validate.StructCtx(ctx, cmd); err != nil {
		return nil, err
	}
	cfg, err := s.configs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.SourceURL != nil {
		cfg.SourceURL = *cmd.SourceURL
	}
	if cmd.APIKey != nil {
		cfg.APIKey = *cmd.APIKey
	}
	if cmd.WebhookSecret != nil {
		cfg.WebhookSecret = *cmd.WebhookSecret
	}
	if cmd.MappingRules != nil {
		cfg.MappingRules = catalogsync.MappingRules(*cmd.MappingRules)
	}
	if cmd.Schedule != nil {
		cfg.Schedule = catalogsync.Schedule(*cmd.Schedule)
	}
	if cmd.AutoApprove != nil {
		cfg.AutoApprove = *cmd.AutoApprove
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Touch(s.now())

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save sync config: %w", err)
	}
	resp := ToConfigResponse(cfg, s.baseURL)
	return &resp, nil
}

// PauseConfig stops scheduled runs and webhook processing
func (s *Service) PauseConfig(ctx context.Context, id uuid.UUID) (*ConfigResponse, error) {
	return s.transition(ctx, id, (*catalogsync.CatalogSyncConfig).Pause)
}

// ResumeConfig reactivates a paused or errored config and makes it due now
func (s *Service) ResumeConfig(ctx context.Context, id uuid.UUID) (*ConfigResponse, error) {
	return s.transition(ctx, id, (*catalogsync.CatalogSyncConfig).Resume)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(*catalogsync.CatalogSyncConfig, time.Time) error) (*ConfigResponse, error) {
	cfg, err := s.configs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(cfg, s.now()); err != nil {
		return nil, err
	}
	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save sync config: %w", err)
	}
	s.log(ctx).Info("catalog sync config status changed",
		zap.String("config_id", cfg.ID.String()),
		zap.String("status", string(cfg.Status)),
	)
	resp := ToConfigResponse(cfg, s.baseURL)
	return &resp, nil
}

// GetConfig returns one config
func (s *Service) GetConfig(ctx context.Context, id uuid.UUID) (*ConfigResponse, error) {
	cfg, err := s.configs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToConfigResponse(cfg, s.baseURL)
	return &resp, nil
}

// ListConfigs returns a page of configs
func (s *Service) ListConfigs(ctx context.Context, filter catalogsync.SyncConfigFilter) (shared.Paginated[ConfigResponse], error) {
	rows, err := s.configs.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ConfigResponse]{}, err
	}
	total, err := s.configs.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[ConfigResponse]{}, err
	}
	items := make([]ConfigResponse, len(rows))
	for i := range rows {
		items[i] = ToConfigResponse(&rows[i], s.baseURL)
	}
	return shared.NewPaginated(items, total, filter.Page), nil
}

// ListSyncLogs returns a page of runs for one config, newest first
func (s *Service) ListSyncLogs(ctx context.Context, filter catalogsync.SyncLogFilter) (shared.Paginated[SyncLogResponse], error) {
	if _, err := s.configs.FindByID(ctx, filter.ConfigID); err != nil {
		return shared.Paginated[SyncLogResponse]{}, err
	}
	rows, err := s.logs.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[SyncLogResponse]{}, err
	}
	total, err := s.logs.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[SyncLogResponse]{}, err
	}
	return shared.NewPaginated(ToSyncLogResponses(rows), total, filter.Page), nil
}

// WebhookURL is where a source should push events for the config
func (s *Service) WebhookURL(configID uuid.UUID) string {
	return catalogsync.WebhookURL(s.baseURL, configID)
}
