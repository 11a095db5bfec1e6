// Package catalogsource fetches seller catalogs over HTTP and parses them
// into loosely typed records.
package catalogsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/infrastructure/config"
)

// ErrSourceTooLarge is returned when a source body exceeds the configured limit
var ErrSourceTooLarge = errors.New("catalogsource: source payload exceeds size limit")

const userAgent = "zetta-catalog-sync/1.0"

// Request describes one outbound catalog fetch
type Request struct {
	URL string
	// APIKey is sent as a bearer token when not empty
	APIKey string
	// Accept overrides the Accept header
	Accept string
}

// HTTPFetcher performs throttled GET requests against catalog sources.
// A single limiter is shared by every source so that a burst of due
// configs does not flood outbound connections.
type HTTPFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
	logger   *zap.Logger
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the underlying client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithLogger sets the fetcher logger
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewHTTPFetcher builds a fetcher from sync settings
func NewHTTPFetcher(cfg config.SyncConfig, opts ...FetcherOption) *HTTPFetcher {
	limit := rate.Limit(cfg.FetchRatePerSec)
	if cfg.FetchRatePerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.FetchBurst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	f := &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, burst),
		maxBytes: cfg.MaxSourceBytes,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs the source and returns its body. Non-2xx responses and network
// errors are wrapped with shared.ErrUpstreamFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for fetch slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", r.URL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if r.Accept != "" {
		req.Header.Set("Accept", r.Accept)
	}
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, fmt.Errorf("%w: HTTP %d from %s", shared.ErrUpstreamFailed, resp.StatusCode, r.URL)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", shared.ErrUpstreamFailed, err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, ErrSourceTooLarge
	}

	f.logger.Debug("catalog source fetched",
		zap.String("url", r.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}
