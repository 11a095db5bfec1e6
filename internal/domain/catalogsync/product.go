package catalogsync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Condition
// ---------------------------------------------------------------------------

// Condition is the refurbished grade of a listing
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
)

// ParseCondition grades free text by substring: anything mentioning
// "excellent" or "new" is excellent, "good" is good, everything else fair.
func ParseCondition(v any) Condition {
	s := strings.ToLower(coerceString(v))
	switch {
	case strings.Contains(s, "excellent"), strings.Contains(s, "new"):
		return ConditionExcellent
	case strings.Contains(s, "good"):
		return ConditionGood
	default:
		return ConditionFair
	}
}

// ---------------------------------------------------------------------------
// ProductStatus
// ---------------------------------------------------------------------------

// ProductStatus is the listing state of a marketplace product
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusPending   ProductStatus = "pending"
	ProductStatusSold      ProductStatus = "sold"
	// ProductStatusWithdrawn marks a product dropped from its source catalog
	// when strict removal is enabled.
	ProductStatusWithdrawn ProductStatus = "withdrawn"
)

// IsRemoved reports whether the product is no longer listed
func (s ProductStatus) IsRemoved() bool {
	return s == ProductStatusSold || s == ProductStatusWithdrawn
}

// ListingStatus is the status a synced product gets on create or update.
func ListingStatus(autoApprove bool) ProductStatus {
	if autoApprove {
		return ProductStatusAvailable
	}
	return ProductStatusPending
}

// RemovalStatus is the status a product gets when its source drops it.
// Without strict removal it shares "sold" with purchased products.
func RemovalStatus(strict bool) ProductStatus {
	if strict {
		return ProductStatusWithdrawn
	}
	return ProductStatusSold
}

// ---------------------------------------------------------------------------
// Product
// ---------------------------------------------------------------------------

// Product is the catalog sync view of a marketplace listing.
type Product struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	ExternalID  string
	Title       string
	Slug        string
	Description string
	Category    string
	Condition   Condition
	Price       decimal.Decimal
	// ZettaPrice is the platform resale price derived from Price
	ZettaPrice decimal.Decimal
	Images     []string
	// WarrantyDuration is in months
	WarrantyDuration *int
	Attributes       map[string]string
	Status           ProductStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSyncedProduct creates a product from a mapped record.
func NewSyncedProduct(sellerID uuid.UUID, externalID string, mapped MappedProduct, status ProductStatus) *Product {
	now := time.Now()
	p := &Product{
		ID:         uuid.New(),
		SellerID:   sellerID,
		ExternalID: externalID,
		Category:   DefaultCategory,
		Condition:  ConditionFair,
		Price:      decimal.Zero,
		Images:     []string{},
		CreatedAt:  now,
	}
	p.Apply(mapped, status, now)
	p.Slug = productSlug(p.Title, externalID)
	return p
}

// Apply overwrites the mapped fields, recomputes the resale price and sets the listing status.
func (p *Product) Apply(mapped MappedProduct, status ProductStatus, now time.Time) {
	if mapped.Title != nil {
		p.Title = *mapped.Title
	}
	if mapped.Description != nil {
		p.Description = *mapped.Description
	}
	if mapped.Category != nil {
		p.Category = *mapped.Category
	}
	if mapped.Condition != nil {
		p.Condition = *mapped.Condition
	}
	if mapped.Price != nil {
		p.Price = *mapped.Price
	}
	if mapped.HasImages {
		p.Images = mapped.Images
	}
	if mapped.WarrantyMapped {
		p.WarrantyDuration = mapped.WarrantyDuration
	}
	if len(mapped.Attributes) > 0 {
		if p.Attributes == nil {
			p.Attributes = make(map[string]string, len(mapped.Attributes))
		}
		for k, v := range mapped.Attributes {
			p.Attributes[k] = v
		}
	}
	p.ZettaPrice = ZettaPrice(p.Price)
	p.Status = status
	p.UpdatedAt = now
}

func productSlug(title, externalID string) string {
	base := slug.Make(title)
	if base == "" {
		return slug.Make(externalID)
	}
	return base + "-" + slug.Make(externalID)
}

// ProductRepository is the port onto the marketplace product store.
// (seller_id, external_id) must be unique at the storage layer.
type ProductRepository interface {
	// FindBySellerAndExternalID returns ErrProductNotFound when there is no match
	FindBySellerAndExternalID(ctx context.Context, sellerID uuid.UUID, externalID string) (*Product, error)
	// ListListedExternalIDs returns external ids of the seller's products that are not removed
	ListListedExternalIDs(ctx context.Context, sellerID uuid.UUID) ([]string, error)
	Create(ctx context.Context, product *Product) error
	Save(ctx context.Context, product *Product) error
	// SetStatusByExternalID changes the status of one product and reports ErrProductNotFound if none matched
	SetStatusByExternalID(ctx context.Context, sellerID uuid.UUID, externalID string, status ProductStatus) error
}
