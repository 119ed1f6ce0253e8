package oauth

import (
	"net/http"

	"ocbridge/internal/config"
)

// Factory builds per-request Clients that share one Resolver and one HTTP
// client, so metadata is fetched once per process while tokens stay per user.
type Factory struct {
	cfg      config.OperationsCenterConfig
	resolver *Resolver
	opts     []ClientOption
}

// NewFactory creates a Factory. httpClient may be nil.
func NewFactory(cfg config.OperationsCenterConfig, timeouts config.TimeoutConfig, httpClient *http.Client) *Factory {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resolver := NewResolver(cfg,
		WithResolverHTTPClient(httpClient),
		WithResolverTimeout(timeouts.Metadata))
	return &Factory{
		cfg:      cfg,
		resolver: resolver,
		opts: []ClientOption{
			WithHTTPClient(httpClient),
			WithResolver(resolver),
			WithTimeouts(timeouts),
		},
	}
}

// New returns a Client hydrated with tokens.
func (f *Factory) New(tokens TokenSet, opts ...ClientOption) *Client {
	all := make([]ClientOption, 0, len(f.opts)+len(opts)+1)
	all = append(all, f.opts...)
	all = append(all, WithTokens(tokens))
	all = append(all, opts...)
	return NewClient(f.cfg, all...)
}

// Resolver returns the shared metadata resolver.
func (f *Factory) Resolver() *Resolver {
	return f.resolver
}
