package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zetta/backend/internal/domain/catalogsync"
	"gorm.io/datatypes"
)

// ProductModel is the marketplace products table as seen by catalog sync.
// (seller_id, external_id) is unique; manual listings carry a NULL external_id.
type ProductModel struct {
	BaseModel
	SellerID         uuid.UUID                             `gorm:"type:uuid;not null;uniqueIndex:idx_products_seller_external,priority:1"`
	ExternalID       *string                               `gorm:"type:varchar(255);uniqueIndex:idx_products_seller_external,priority:2"`
	Title            string                                `gorm:"type:varchar(500);not null"`
	Slug             string                                `gorm:"type:varchar(600);index"`
	Description      string                                `gorm:"type:text"`
	Category         string                                `gorm:"type:varchar(100);not null"`
	Condition        catalogsync.Condition                 `gorm:"type:varchar(20);not null"`
	Price            decimal.Decimal                       `gorm:"type:numeric(12,2);not null"`
	ZettaPrice       decimal.Decimal                       `gorm:"type:numeric(12,2);not null"`
	Images           datatypes.JSONType[[]string]          `gorm:"not null"`
	WarrantyDuration *int                                  `gorm:"column:warranty_duration"`
	Attributes       datatypes.JSONType[map[string]string] `gorm:"not null"`
	Status           catalogsync.ProductStatus             `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a catalog sync Product
func (m *ProductModel) ToDomain() *catalogsync.Product {
	p := &catalogsync.Product{
		ID:               m.ID,
		SellerID:         m.SellerID,
		Title:            m.Title,
		Slug:             m.Slug,
		Description:      m.Description,
		Category:         m.Category,
		Condition:        m.Condition,
		Price:            m.Price,
		ZettaPrice:       m.ZettaPrice,
		Images:           m.Images.Data(),
		WarrantyDuration: m.WarrantyDuration,
		Attributes:       m.Attributes.Data(),
		Status:           m.Status,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.ExternalID != nil {
		p.ExternalID = *m.ExternalID
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

// ProductModelFromDomain converts a catalog sync Product to its model
func ProductModelFromDomain(p *catalogsync.Product) *ProductModel {
	m := &ProductModel{
		BaseModel: BaseModel{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		SellerID:         p.SellerID,
		Title:            p.Title,
		Slug:             p.Slug,
		Description:      p.Description,
		Category:         p.Category,
		Condition:        p.Condition,
		Price:            p.Price,
		ZettaPrice:       p.ZettaPrice,
		Images:           datatypes.NewJSONType(p.Images),
		WarrantyDuration: p.WarrantyDuration,
		Attributes:       datatypes.NewJSONType(p.Attributes),
		Status:           p.Status,
	}
	if p.ExternalID != "" {
		ext := p.ExternalID
		m.ExternalID = &ext
	}
	return m
}

// CatalogSyncConfigModel is the persistence model for a seller's catalog source
type CatalogSyncConfigModel struct {
	BaseModel
	SellerID      uuid.UUID                             `gorm:"type:uuid;not null;index"`
	SyncType      catalogsync.SyncType                  `gorm:"type:varchar(20);not null"`
	SourceURL     string                                `gorm:"type:varchar(2048)"`
	APIKey        string                                `gorm:"column:api_key;type:varchar(500)"`
	WebhookSecret string                                `gorm:"type:varchar(500)"`
	MappingRules  datatypes.JSONType[map[string]string] `gorm:"not null"`
	Schedule      catalogsync.Schedule                  `gorm:"type:varchar(20);not null"`
	AutoApprove   bool                                  `gorm:"not null;default:false"`
	LastSync      *time.Time
	NextSync      *time.Time                            `gorm:"index:idx_sync_configs_due,priority:2"`
	Status        catalogsync.ConfigStatus              `gorm:"type:varchar(20);not null;index:idx_sync_configs_due,priority:1"`
	ErrorMessage  string                                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CatalogSyncConfigModel) TableName() string {
	return "catalog_sync_configs"
}

// ToDomain converts the persistence model to a domain CatalogSyncConfig
func (m *CatalogSyncConfigModel) ToDomain() *catalogsync.CatalogSyncConfig {
	return &catalogsync.CatalogSyncConfig{
		BaseEntity:    m.BaseModel.ToDomain(),
		SellerID:      m.SellerID,
		SyncType:      m.SyncType,
		SourceURL:     m.SourceURL,
		APIKey:        m.APIKey,
		WebhookSecret: m.WebhookSecret,
		MappingRules:  catalogsync.MappingRules(m.MappingRules.Data()),
		Schedule:      m.Schedule,
		AutoApprove:   m.AutoApprove,
		LastSync:      m.LastSync,
		NextSync:      m.NextSync,
		Status:        m.Status,
		ErrorMessage:  m.ErrorMessage,
	}
}

// CatalogSyncConfigModelFromDomain converts a domain config to its model
func CatalogSyncConfigModelFromDomain(c *catalogsync.CatalogSyncConfig) *CatalogSyncConfigModel {
	m := &CatalogSyncConfigModel{
		SellerID:      c.SellerID,
		SyncType:      c.SyncType,
		SourceURL:     c.SourceURL,
		APIKey:        c.APIKey,
		WebhookSecret: c.WebhookSecret,
		MappingRules:  datatypes.NewJSONType(map[string]string(c.MappingRules)),
		Schedule:      c.Schedule,
		AutoApprove:   c.AutoApprove,
		LastSync:      c.LastSync,
		NextSync:      c.NextSync,
		Status:        c.Status,
		ErrorMessage:  c.ErrorMessage,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// SyncLogModel is the persistence model for one sync run
type SyncLogModel struct {
	ID              uuid.UUID                                       `gorm:"type:uuid;primaryKey"`
	ConfigID        uuid.UUID                                       `gorm:"type:uuid;not null;index:idx_sync_logs_config_started,priority:1"`
	Trigger         catalogsync.Trigger                             `gorm:"column:sync_trigger;type:varchar(20);not null"`
	StartedAt       time.Time                                       `gorm:"not null;index:idx_sync_logs_config_started,priority:2"`
	CompletedAt     *time.Time
	Status          catalogsync.SyncStatus                          `gorm:"type:varchar(20);not null;index"`
	ProductsAdded   int                                             `gorm:"not null;default:0"`
	ProductsUpdated int                                             `gorm:"not null;default:0"`
	ProductsRemoved int                                             `gorm:"not null;default:0"`
	ErrorMessage    string                                          `gorm:"type:text"`
	SyncData        datatypes.JSONType[catalogsync.SyncDiagnostics] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "catalog_sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog
func (m *SyncLogModel) ToDomain() *catalogsync.SyncLog {
	return &catalogsync.SyncLog{
		ID:              m.ID,
		ConfigID:        m.ConfigID,
		Trigger:         m.Trigger,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		Status:          m.Status,
		ProductsAdded:   m.ProductsAdded,
		ProductsUpdated: m.ProductsUpdated,
		ProductsRemoved: m.ProductsRemoved,
		ErrorMessage:    m.ErrorMessage,
		SyncData:        m.SyncData.Data(),
	}
}

// SyncLogModelFromDomain converts a domain SyncLog to its model
func SyncLogModelFromDomain(l *catalogsync.SyncLog) *SyncLogModel {
	return &SyncLogModel{
		ID:              l.ID,
		ConfigID:        l.ConfigID,
		Trigger:         l.Trigger,
		StartedAt:       l.StartedAt,
		CompletedAt:     l.CompletedAt,
		Status:          l.Status,
		ProductsAdded:   l.ProductsAdded,
		ProductsUpdated: l.ProductsUpdated,
		ProductsRemoved: l.ProductsRemoved,
		ErrorMessage:    l.ErrorMessage,
		SyncData:        datatypes.NewJSONType(l.SyncData),
	}
}

// WebhookEventModel is the persistence model for a received webhook.
// (config_id, external_event_id) is unique when the source supplies an id.
type WebhookEventModel struct {
	ID              uuid.UUID                    `gorm:"type:uuid;primaryKey"`
	ConfigID        uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_webhook_events_delivery,priority:1"`
	ExternalEventID *string                      `gorm:"type:varchar(255);uniqueIndex:idx_webhook_events_delivery,priority:2"`
	EventType       catalogsync.WebhookEventType `gorm:"type:varchar(50);not null"`
	Payload         datatypes.JSON               `gorm:"not null"`
	Processed       bool                         `gorm:"not null;default:false;index"`
	ProcessedAt     *time.Time
	Error           string                       `gorm:"column:error;type:text"`
	CreatedAt       time.Time                    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "catalog_webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent
func (m *WebhookEventModel) ToDomain() *catalogsync.WebhookEvent {
	e := &catalogsync.WebhookEvent{
		ID:          m.ID,
		ConfigID:    m.ConfigID,
		EventType:   m.EventType,
		Payload:     json.RawMessage(m.Payload),
		Processed:   m.Processed,
		ProcessedAt: m.ProcessedAt,
		Error:       m.Error,
		CreatedAt:   m.CreatedAt,
	}
	if m.ExternalEventID != nil {
		e.ExternalEventID = *m.ExternalEventID
	}
	return e
}

// WebhookEventModelFromDomain converts a domain WebhookEvent to its model
func WebhookEventModelFromDomain(e *catalogsync.WebhookEvent) *WebhookEventModel {
	m := &WebhookEventModel{
		ID:          e.ID,
		ConfigID:    e.ConfigID,
		EventType:   e.EventType,
		Payload:     datatypes.JSON(e.Payload),
		Processed:   e.Processed,
		ProcessedAt: e.ProcessedAt,
		Error:       e.Error,
		CreatedAt:   e.CreatedAt,
	}
	if e.ExternalEventID != "" {
		id := e.ExternalEventID
		m.ExternalEventID = &id
	}
	return m
}
