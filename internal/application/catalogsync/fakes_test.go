package catalogsync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/catalogsource"
)

// memConfigRepo keeps configs in a map. Stored values are copies so a test
// sees only what the service saved.
type memConfigRepo struct {
	mu      sync.Mutex
	configs map[uuid.UUID]catalogsync.CatalogSyncConfig
	saves   int
}

func newMemConfigRepo(cfgs ...*catalogsync.CatalogSyncConfig) *memConfigRepo {
	r := &memConfigRepo{configs: make(map[uuid.UUID]catalogsync.CatalogSyncConfig)}
	for _, c := range cfgs {
		r.configs[c.ID] = *c
	}
	return r
}

func (r *memConfigRepo) FindByID(_ context.Context, id uuid.UUID) (*catalogsync.CatalogSyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.configs[id]
	if !ok {
		return nil, catalogsync.ErrSyncConfigNotFound
	}
	return &c, nil
}

func (r *memConfigRepo) FindAll(_ context.Context, filter catalogsync.SyncConfigFilter) ([]catalogsync.CatalogSyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []catalogsync.CatalogSyncConfig{}
	for _, c := range r.configs {
		if filter.SellerID != nil && c.SellerID != *filter.SellerID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.SyncType != "" && c.SyncType != filter.SyncType {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memConfigRepo) Count(ctx context.Context, filter catalogsync.SyncConfigFilter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *memConfigRepo) FindDue(_ context.Context, now time.Time) ([]catalogsync.CatalogSyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []catalogsync.CatalogSyncConfig{}
	for _, c := range r.configs {
		if c.IsDue(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memConfigRepo) Save(_ context.Context, c *catalogsync.CatalogSyncConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[c.ID] = *c
	r.saves++
	return nil
}

func (r *memConfigRepo) get(id uuid.UUID) catalogsync.CatalogSyncConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configs[id]
}

type memLogRepo struct {
	mu   sync.Mutex
	logs []catalogsync.SyncLog
}

func (r *memLogRepo) Create(_ context.Context, l *catalogsync.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *l)
	return nil
}

func (r *memLogRepo) Finalize(_ context.Context, l *catalogsync.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ID != l.ID {
			continue
		}
		if r.logs[i].IsCompleted() {
			return catalogsync.ErrSyncLogFinalized
		}
		r.logs[i] = *l
		return nil
	}
	return catalogsync.ErrSyncLogNotFound
}

func (r *memLogRepo) FindByID(_ context.Context, id uuid.UUID) (*catalogsync.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logs {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, catalogsync.ErrSyncLogNotFound
}

func (r *memLogRepo) FindAll(_ context.Context, filter catalogsync.SyncLogFilter) ([]catalogsync.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []catalogsync.SyncLog{}
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if l.ConfigID != filter.ConfigID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *memLogRepo) Count(ctx context.Context, filter catalogsync.SyncLogFilter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *memLogRepo) all() []catalogsync.SyncLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]catalogsync.SyncLog(nil), r.logs...)
}

type memEventRepo struct {
	mu     sync.Mutex
	events []catalogsync.WebhookEvent
}

func (r *memEventRepo) Create(_ context.Context, e *catalogsync.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.events {
		if e.ExternalEventID != "" && existing.ConfigID == e.ConfigID && existing.ExternalEventID == e.ExternalEventID {
			return catalogsync.ErrDuplicateWebhookEvent
		}
	}
	r.events = append(r.events, *e)
	return nil
}

func (r *memEventRepo) Save(_ context.Context, e *catalogsync.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == e.ID {
			r.events[i] = *e
			return nil
		}
	}
	return catalogsync.ErrWebhookEventNotFound
}

func (r *memEventRepo) FindByID(_ context.Context, id uuid.UUID) (*catalogsync.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, catalogsync.ErrWebhookEventNotFound
}

func (r *memEventRepo) ConfigsWithUnprocessed(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	out := []uuid.UUID{}
	for _, e := range r.events {
		if !e.Processed && !seen[e.ConfigID] {
			seen[e.ConfigID] = true
			out = append(out, e.ConfigID)
		}
	}
	return out, nil
}

func (r *memEventRepo) FindUnprocessedByConfig(_ context.Context, configID uuid.UUID, limit int) ([]catalogsync.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []catalogsync.WebhookEvent{}
	for _, e := range r.events {
		if !e.Processed && e.ConfigID == configID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type productKey struct {
	seller     uuid.UUID
	externalID string
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[productKey]catalogsync.Product
	created  []string
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[productKey]catalogsync.Product)}
}

func (r *memProductRepo) FindBySellerAndExternalID(_ context.Context, sellerID uuid.UUID, externalID string) (*catalogsync.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productKey{sellerID, externalID}]
	if !ok {
		return nil, catalogsync.ErrProductNotFound
	}
	return &p, nil
}

func (r *memProductRepo) ListListedExternalIDs(_ context.Context, sellerID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for k, p := range r.products {
		if k.seller == sellerID && !p.Status.IsRemoved() {
			out = append(out, k.externalID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memProductRepo) Create(_ context.Context, p *catalogsync.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := productKey{p.SellerID, p.ExternalID}
	if _, ok := r.products[k]; ok {
		return catalogsync.ErrProductExists
	}
	r.products[k] = *p
	r.created = append(r.created, p.ExternalID)
	return nil
}

func (r *memProductRepo) Save(_ context.Context, p *catalogsync.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[productKey{p.SellerID, p.ExternalID}] = *p
	return nil
}

func (r *memProductRepo) SetStatusByExternalID(_ context.Context, sellerID uuid.UUID, externalID string, status catalogsync.ProductStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := productKey{sellerID, externalID}
	p, ok := r.products[k]
	if !ok {
		return catalogsync.ErrProductNotFound
	}
	p.Status = status
	r.products[k] = p
	return nil
}

func (r *memProductRepo) get(sellerID uuid.UUID, externalID string) (catalogsync.Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productKey{sellerID, externalID}]
	return p, ok
}

func (r *memProductRepo) statuses(sellerID uuid.UUID) map[string]catalogsync.ProductStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]catalogsync.ProductStatus)
	for k, p := range r.products {
		if k.seller == sellerID {
			out[k.externalID] = p.Status
		}
	}
	return out
}

type MockSourceFetcher struct {
	mock.Mock
}

func (m *MockSourceFetcher) Fetch(ctx context.Context, req catalogsource.Request) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockPayloadArchive struct {
	mock.Mock
}

func (m *MockPayloadArchive) Archive(ctx context.Context, p ArchivedPayload) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type recordingMetrics struct {
	mu       sync.Mutex
	runs     []string
	webhooks []string
	added    int
	removed  int
}

func (m *recordingMetrics) ObserveSyncRun(_, trigger, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, trigger+":"+status)
}

func (m *recordingMetrics) AddProductChanges(_ string, added, _, removed, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added += added
	m.removed += removed
}

func (m *recordingMetrics) ObserveWebhook(eventType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, eventType+":"+outcome)
}
