package oauth

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"ocbridge/internal/config"
	"ocbridge/pkg/logging"
	pkgstrings "ocbridge/pkg/strings"
)

const (
	// resourceAccept is the versioned media type of the equipment API.
	resourceAccept = "application/vnd.deere.axiom.v3+json"

	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// Client drives the authorization code flow against Operations Center and
// calls its resource API with the resulting tokens.
//
// A Client holds the tokens of exactly one user. Web requests build a fresh
// Client per request, hydrated from the session; only the Resolver and the
// HTTP client are shared.
type Client struct {
	cfg        config.OperationsCenterConfig
	resolver   *Resolver
	httpClient *http.Client
	timeouts   config.TimeoutConfig
	now        func() time.Time

	// callMu serializes refresh and resource calls on this client.
	callMu sync.Mutex

	mu     sync.RWMutex
	tokens TokenSet
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for token and resource calls.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithResolver shares a metadata resolver between clients.
func WithResolver(r *Resolver) ClientOption {
	return func(cl *Client) {
		cl.resolver = r
	}
}

// WithClock sets the time source used for expiry decisions.
func WithClock(now func() time.Time) ClientOption {
	return func(cl *Client) {
		cl.now = now
	}
}

// WithTimeouts overrides the per-operation upstream timeouts.
func WithTimeouts(t config.TimeoutConfig) ClientOption {
	return func(cl *Client) {
		cl.timeouts = t
	}
}

// WithTokens hydrates the client with an existing TokenSet.
func WithTokens(t TokenSet) ClientOption {
	return func(cl *Client) {
		cl.tokens = t
	}
}

// NewClient creates a Client with an empty TokenSet.
func NewClient(cfg config.OperationsCenterConfig, opts ...ClientOption) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		now:        time.Now,
		timeouts: config.TimeoutConfig{
			Metadata: config.DefaultMetadataTimeout,
			Token:    config.DefaultTokenTimeout,
			Resource: config.DefaultResourceTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = NewResolver(cfg,
			WithResolverHTTPClient(c.httpClient),
			WithResolverTimeout(c.timeouts.Metadata))
	}
	return c
}

// Tokens returns a copy of the current TokenSet.
func (c *Client) Tokens() TokenSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// SetTokens replaces the TokenSet.
func (c *Client) SetTokens(t TokenSet) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Client) State() TokenState {
	return c.Tokens().State(c.now())
}

// AuthorizationURL builds the provider login URL with the configured static
// state.
func (c *Client) AuthorizationURL(ctx context.Context) (string, error) {
	return c.AuthorizationURLWithState(ctx, c.cfg.State)
}

// AuthorizationURLWithState builds the provider login URL. Its query carries
// client_id, response_type, scope, redirect_uri and state.
func (c *Client) AuthorizationURLWithState(ctx context.Context, state string) (string, error) {
	oc, err := c.oauth2Config(ctx)
	if err != nil {
		return "", err
	}
	if oc.Endpoint.AuthURL == "" {
		return "", &UpstreamUnavailableError{
			Op:  "metadata",
			URL: c.cfg.WellKnownURL,
			Err: errors.New("discovery document has no authorization_endpoint"),
		}
	}
	return oc.AuthCodeURL(state), nil
}

// ExchangeCode trades an authorization code for tokens. On success the whole
// TokenSet is replaced; on failure it is left untouched.
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	if code == "" {
		return &TokenExchangeError{GrantType: grantAuthorizationCode, Err: errors.New("authorization code is empty")}
	}

	oc, err := c.tokenConfig(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.httpContext(ctx), c.timeouts.Token)
	defer cancel()

	start := time.Now()
	tok, err := oc.Exchange(ctx, code, oauth2.SetAuthURLParam("scope", c.cfg.Scope))
	if err != nil {
		err = c.classifyTokenError(grantAuthorizationCode, oc.Endpoint.TokenURL, err)
		logging.Audit(logging.AuditEvent{Action: "token_exchange", Outcome: "failure", Details: err.Error(), Duration: time.Since(start)})
		return err
	}

	c.SetTokens(c.acceptToken(tok, ""))
	logging.Audit(logging.AuditEvent{Action: "token_exchange", Outcome: "success", Duration: time.Since(start)})
	logging.Debug("OAuth", "Exchanged authorization code (expires_in=%d)", tok.ExpiresIn)
	return nil
}

// Refresh obtains a new access token with the stored refresh token.
// A response without a new refresh token keeps the previous one.
func (c *Client) Refresh(ctx context.Context) error {
	c.callMu.Lock()
	defer c.callMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Client) refreshLocked(ctx context.Context) error {
	current := c.Tokens()
	if current.RefreshToken == "" {
		return &NotAuthorizedError{Reason: "no refresh token available, restart the login flow"}
	}

	oc, err := c.tokenConfig(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.httpContext(ctx), c.timeouts.Token)
	defer cancel()

	start := time.Now()
	tok, err := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken}).Token()
	if err != nil {
		err = c.classifyTokenError(grantRefreshToken, oc.Endpoint.TokenURL, err)
		logging.Audit(logging.AuditEvent{Action: "token_refresh", Outcome: "failure", Details: err.Error(), Duration: time.Since(start)})
		return err
	}

	c.SetTokens(c.acceptToken(tok, current.RefreshToken))
	logging.Audit(logging.AuditEvent{Action: "token_refresh", Outcome: "success", Duration: time.Since(start)})
	return nil
}

// CallResource performs an authenticated GET against the resource API and
// returns the response body. An expired access token is refreshed first,
// exactly once.
func (c *Client) CallResource(ctx context.Context, resourceURL string) ([]byte, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	tokens := c.Tokens()
	if tokens.AccessToken == "" {
		return nil, &NotAuthorizedError{Reason: "no access token, log in through /auth/login"}
	}
	if tokens.IsExpired(c.now()) {
		logging.Debug("OAuth", "Access token expired at %s, refreshing", tokens.ExpiresAt.Format(time.RFC3339))
		if err := c.refreshLocked(ctx); err != nil {
			return nil, err
		}
		tokens = c.Tokens()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Resource)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, &ResourceAPIError{URL: resourceURL, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set("Accept", resourceAccept)
	req.Header.Set("No_paging", "true")
	req.Header.Set("x-deere-no-paging", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ResourceAPIError{URL: resourceURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResourceAPIError{URL: resourceURL, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResourceAPIError{
			URL:        resourceURL,
			StatusCode: resp.StatusCode,
			Body:       pkgstrings.Truncate(string(body), pkgstrings.DefaultBodyMaxLen),
			Challenge:  ParseWWWAuthenticate(resp.Header.Get("WWW-Authenticate")),
		}
	}
	return body, nil
}

// oauth2Config resolves metadata and builds the x/oauth2 configuration.
// Client credentials are sent with HTTP Basic authentication.
func (c *Client) oauth2Config(ctx context.Context) (*oauth2.Config, error) {
	metadata, err := c.resolver.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       strings.Fields(c.cfg.Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   metadata.AuthorizationEndpoint,
			TokenURL:  metadata.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, nil
}

func (c *Client) tokenConfig(ctx context.Context) (*oauth2.Config, error) {
	oc, err := c.oauth2Config(ctx)
	if err != nil {
		return nil, err
	}
	if oc.Endpoint.TokenURL == "" {
		return nil, &UpstreamUnavailableError{
			Op:  "metadata",
			URL: c.cfg.WellKnownURL,
			Err: errors.New("discovery document has no token_endpoint"),
		}
	}
	return oc, nil
}

// httpContext makes x/oauth2 use the client's HTTP client.
func (c *Client) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// acceptToken converts a token response into a TokenSet, computing the expiry
// from expires_in at acceptance time.
func (c *Client) acceptToken(tok *oauth2.Token, previousRefresh string) TokenSet {
	set := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if set.RefreshToken == "" {
		set.RefreshToken = previousRefresh
	}
	switch {
	case tok.ExpiresIn > 0:
		set.ExpiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		set.ExpiresAt = tok.Expiry
	}
	return set
}

// classifyTokenError maps x/oauth2 errors onto the package error types.
func (c *Client) classifyTokenError(grantType, tokenURL string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &TokenExchangeError{
			GrantType:  grantType,
			StatusCode: status,
			Body:       pkgstrings.Truncate(string(retrieveErr.Body), pkgstrings.DefaultBodyMaxLen),
			Err:        err,
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &UpstreamUnavailableError{Op: "token", URL: tokenURL, Err: err}
	}

	// 2xx responses that are not a usable token response
	return &TokenExchangeError{GrantType: grantType, Err: err}
}
