package persistence

import (
	"strings"

	"github.com/zetta/backend/internal/domain/shared"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC.
// Anything other than asc (any case) yields DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, defaultField otherwise.
// Matching is exact so column names never reach SQL unchecked.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// sortSpec is the whitelist and default ordering of one listing
type sortSpec struct {
	allowed      map[string]bool
	defaultField string
	defaultDir   string
}

// orderClause builds a deterministic ORDER BY for a page. id breaks ties so
// offsets stay stable between requests.
func (s sortSpec) orderClause(page shared.Page) string {
	field := ValidateSortField(page.SortBy, s.allowed, s.defaultField)
	dir := s.defaultDir
	if strings.TrimSpace(page.SortOrder) != "" {
		dir = ValidateSortOrder(page.SortOrder)
	}
	if field == "id" {
		return "id " + dir
	}
	return field + " " + dir + ", id " + dir
}

// CommissionSortFields contains allowed sort fields for commissions
var CommissionSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"order_amount":      true,
	"commission_amount": true,
	"seller_payout":     true,
	"status":            true,
	"calculated_at":     true,
	"paid_at":           true,
}

// SupplierPaymentSortFields contains allowed sort fields for supplier payments
var SupplierPaymentSortFields = map[string]bool{
	"id":                   true,
	"created_at":           true,
	"updated_at":           true,
	"payment_period_start": true,
	"payment_period_end":   true,
	"total_sales":          true,
	"payout_amount":        true,
	"order_count":          true,
	"status":               true,
	"paid_at":              true,
}

// SyncConfigSortFields contains allowed sort fields for catalog sync configs
var SyncConfigSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"sync_type":  true,
	"schedule":   true,
	"status":     true,
	"last_sync":  true,
	"next_sync":  true,
}

// SyncLogSortFields contains allowed sort fields for sync logs
var SyncLogSortFields = map[string]bool{
	"id":               true,
	"started_at":       true,
	"completed_at":     true,
	"status":           true,
	"products_added":   true,
	"products_updated": true,
	"products_removed": true,
}

var (
	commissionSort      = sortSpec{allowed: CommissionSortFields, defaultField: "created_at", defaultDir: "DESC"}
	supplierPaymentSort = sortSpec{allowed: SupplierPaymentSortFields, defaultField: "payment_period_start", defaultDir: "DESC"}
	syncConfigSort      = sortSpec{allowed: SyncConfigSortFields, defaultField: "created_at", defaultDir: "DESC"}
	syncLogSort         = sortSpec{allowed: SyncLogSortFields, defaultField: "started_at", defaultDir: "DESC"}
)
