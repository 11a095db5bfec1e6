// Package catalogsync contains the Catalog Synchronization bounded context.
// Sellers register external catalog sources; the platform pulls or receives
// their product data, maps it through per-source field rules and reconciles
// it against the marketplace product store.
//
// Key concepts:
//   - CatalogSyncConfig: aggregate describing one external source and its schedule
//   - SyncLog: append-only record of one sync run and its counters
//   - WebhookEvent: one pushed change notification from a source
//   - MappingRules / MapExternalProduct: field mapping from loosely typed records
//   - Product: port onto the marketplace product store, keyed by (seller, external id)
package catalogsync
