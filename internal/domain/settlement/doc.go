// Package settlement contains the Settlement bounded context.
// It computes the platform commission taken from each paid order and batches
// the remaining seller payouts into supplier payments.
//
// Key concepts:
//   - Commission: one per paid order, splits the order total into the platform cut and the seller payout
//   - SupplierPayment: aggregate root batching one seller's calculated commissions over a period
//   - Period: half-open [start, end) date range used for aggregation
//   - Order: port onto the storefront's order records
package settlement
