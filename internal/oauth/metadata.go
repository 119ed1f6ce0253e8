package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ocbridge/internal/config"
	"ocbridge/pkg/logging"
)

// Resolver fetches the provider discovery document once and caches it for
// its own lifetime. Endpoint changes at the provider require a restart.
type Resolver struct {
	cfg        config.OperationsCenterConfig
	httpClient *http.Client
	timeout    time.Duration

	mu       sync.RWMutex
	metadata *ProviderMetadata

	// singleflight group to deduplicate concurrent first fetches
	group singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverHTTPClient sets the HTTP client used for discovery.
func WithResolverHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

// WithResolverTimeout sets the discovery request timeout.
func WithResolverTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// NewResolver creates a Resolver for the configured well-known URL.
func NewResolver(cfg config.OperationsCenterConfig, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		timeout:    config.DefaultMetadataTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metadata returns the provider metadata, fetching it on first use.
// Failures are not cached; the next call fetches again.
func (r *Resolver) Metadata(ctx context.Context) (*ProviderMetadata, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	cached := r.metadata
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	result, err, shared := r.group.Do("metadata", func() (interface{}, error) {
		// Double-check cache after acquiring the singleflight lock
		r.mu.RLock()
		cached := r.metadata
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		// Detached from the caller so that one cancelled request does not
		// fail every request waiting on the same fetch.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.fetch(fetchCtx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug("OAuth", "Shared in-flight metadata fetch")
	}
	return result.(*ProviderMetadata), nil
}

func (r *Resolver) fetch(ctx context.Context) (*ProviderMetadata, error) {
	wellKnownURL := r.cfg.WellKnownURL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return nil, &UpstreamUnavailableError{Op: "metadata", URL: wellKnownURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamUnavailableError{Op: "metadata", URL: wellKnownURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamUnavailableError{Op: "metadata", URL: wellKnownURL, StatusCode: resp.StatusCode}
	}

	var metadata ProviderMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, &UpstreamUnavailableError{Op: "metadata", URL: wellKnownURL, Err: err}
	}

	r.mu.Lock()
	r.metadata = &metadata
	r.mu.Unlock()

	logging.Debug("OAuth", "Fetched provider metadata from %s (auth=%s, token=%s)",
		wellKnownURL, metadata.AuthorizationEndpoint, metadata.TokenEndpoint)

	return &metadata, nil
}
