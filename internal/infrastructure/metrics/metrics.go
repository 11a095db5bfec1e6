// Package metrics exposes Prometheus counters for HTTP traffic, catalog sync
// runs and settlement operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	syncapp "github.com/zetta/backend/internal/application/catalogsync"
	settlementapp "github.com/zetta/backend/internal/application/settlement"
)

const namespace = "zetta"

var (
	_ syncapp.SyncMetrics             = (*Metrics)(nil)
	_ settlementapp.SettlementMetrics = (*Metrics)(nil)
)

// Metrics holds every collector registered by the service
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SyncRunsTotal      *prometheus.CounterVec
	SyncRunDuration    *prometheus.HistogramVec
	ProductChanges     *prometheus.CounterVec
	WebhookEventsTotal *prometheus.CounterVec

	CommissionsRecorded   prometheus.Counter
	PaymentsTotal         *prometheus.CounterVec
	PayoutAmountTotal     prometheus.Counter
	CommissionsReconciled prometheus.Counter
}

// New creates the collectors on a fresh registry, together with the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		SyncRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog_sync",
			Name:      "runs_total",
			Help:      "Catalog sync runs by source type, trigger and outcome",
		}, []string{"sync_type", "trigger", "status"}),
		SyncRunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog_sync",
			Name:      "run_duration_seconds",
			Help:      "Catalog sync run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		}, []string{"sync_type"}),
		ProductChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog_sync",
			Name:      "product_changes_total",
			Help:      "Products added, updated, removed or skipped by catalog sync",
		}, []string{"sync_type", "change"}),
		WebhookEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog_sync",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type and outcome",
		}, []string{"event_type", "outcome"}),

		CommissionsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "commissions_recorded_total",
			Help:      "Commissions calculated for paid orders",
		}),
		PaymentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "supplier_payments_total",
			Help:      "Supplier payment transitions by resulting status",
		}, []string{"status"}),
		PayoutAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "payout_amount_total",
			Help:      "Sum of completed seller payouts in currency units",
		}),
		CommissionsReconciled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "commissions_reconciled_total",
			Help:      "Commissions settled by the reconciliation job",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware records request count and latency labelled by route pattern
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveSyncRun records one finished sync run
func (m *Metrics) ObserveSyncRun(syncType, trigger, status string, elapsed time.Duration) {
	m.SyncRunsTotal.WithLabelValues(syncType, trigger, status).Inc()
	m.SyncRunDuration.WithLabelValues(syncType).Observe(elapsed.Seconds())
}

// AddProductChanges adds the counters of one run
func (m *Metrics) AddProductChanges(syncType string, added, updated, removed, skipped int) {
	m.ProductChanges.WithLabelValues(syncType, "added").Add(float64(added))
	m.ProductChanges.WithLabelValues(syncType, "updated").Add(float64(updated))
	m.ProductChanges.WithLabelValues(syncType, "removed").Add(float64(removed))
	m.ProductChanges.WithLabelValues(syncType, "skipped").Add(float64(skipped))
}

// ObserveWebhook records one webhook delivery
func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	m.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// CommissionRecorded counts one calculated commission
func (m *Metrics) CommissionRecorded() {
	m.CommissionsRecorded.Inc()
}

// PaymentTransition counts a supplier payment reaching status
func (m *Metrics) PaymentTransition(status string) {
	m.PaymentsTotal.WithLabelValues(status).Inc()
}

// PayoutCompleted adds a completed payout amount
func (m *Metrics) PayoutCompleted(amount float64) {
	m.PayoutAmountTotal.Add(amount)
}

// CommissionsSettledByReconcile counts commissions fixed up by reconciliation
func (m *Metrics) CommissionsSettledByReconcile(n int64) {
	m.CommissionsReconciled.Add(float64(n))
}
