package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ocbridge/internal/bridge"
	"ocbridge/internal/config"
	"ocbridge/internal/oauth"
	"ocbridge/internal/server"
	"ocbridge/internal/session"
	"ocbridge/pkg/logging"
)

// Services holds all initialized components used by the application.
//
// Field descriptions:
//   - Sessions: cookie-bound session manager over the configured store
//   - States: single-use login states
//   - Factory: per-request Operations Center clients sharing one metadata resolver
//   - Server: the main web application (nil in bridge-only mode)
//   - Bridge: the loopback callback listener (nil when disabled)
type Services struct {
	Sessions *session.Manager
	States   *oauth.StateStore
	Factory  *oauth.Factory
	Server   *server.Server
	Bridge   *bridge.Bridge

	closers []func()
}

// InitializeServices creates all components for the application.
//
// Initialization Sequence:
//  1. Bridge: created when enabled, or always in bridge-only mode
//  2. Session store: in-memory or Redis, per session.backend
//  3. Session manager: signed cookie, random secret when none is configured
//  4. OAuth: state store and client factory
//  5. Server: main HTTP application
func InitializeServices(ctx context.Context, cfg *Config) (*Services, error) {
	oc := cfg.OCBridgeConfig
	services := &Services{}

	if oc.Bridge.Enabled || cfg.BridgeOnly {
		forwardURL := strings.TrimRight(oc.Server.PublicURL, "/") + "/auth/callback"
		services.Bridge = bridge.New(bridge.Config{Addr: oc.Bridge.Addr, ForwardURL: forwardURL})
		warnOnRedirectMismatch(oc.OperationsCenter.RedirectURI, oc.Bridge.Addr)
	}
	if cfg.BridgeOnly {
		return services, nil
	}

	store, err := createSessionStore(ctx, oc.Session)
	if err != nil {
		return nil, err
	}
	services.closers = append(services.closers, store.close)

	secret := []byte(oc.Session.Secret)
	if len(secret) == 0 {
		secret, err = session.GenerateSecret()
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		logging.Warn("Bootstrap", "OCBRIDGE_SESSION_SECRET is not set; using a random secret, sessions will not survive a restart")
	}

	services.Sessions = session.NewManager(store.Store, secret, session.Options{
		CookieName: oc.Session.CookieName,
		TTL:        oc.Session.TTL,
		Secure:     strings.HasPrefix(oc.Server.PublicURL, "https://"),
	})

	services.States = oauth.NewStateStore()
	services.closers = append(services.closers, services.States.Stop)

	httpClient := &http.Client{}
	services.Factory = oauth.NewFactory(oc.OperationsCenter, oc.Timeouts, httpClient)

	services.Server = server.New(oc.Server.ListenAddr, services.Factory, services.Sessions, services.States,
		serverOptions(oc.Server)...)

	return services, nil
}

// serverOptions selects the local-login check. Without one every browser
// session may link an Operations Center account.
func serverOptions(cfg config.ServerConfig) []server.Option {
	if !cfg.RequireLocalLogin && cfg.LocalLoginURL == "" {
		logging.Warn("Bootstrap", "Local login is not required; any browser session can link Operations Center")
		return nil
	}
	opts := []server.Option{server.WithAuthenticator(session.RequireUserID)}
	if cfg.LocalLoginURL != "" {
		opts = append(opts, server.WithLocalLoginURL(cfg.LocalLoginURL))
	}
	return opts
}

// Close releases background resources.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

type sessionStore struct {
	session.Store
	close func()
}

func createSessionStore(ctx context.Context, cfg config.SessionConfig) (*sessionStore, error) {
	switch cfg.Backend {
	case config.SessionBackendRedis:
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		logging.Info("Bootstrap", "Using Redis session store")
		return &sessionStore{Store: rs, close: func() {
			if err := rs.Close(); err != nil {
				logging.Warn("Bootstrap", "Failed to close Redis session store: %v", err)
			}
		}}, nil
	case config.SessionBackendMemory, "":
		ms := session.NewMemoryStore(cfg.TTL)
		logging.Info("Bootstrap", "Using in-memory session store")
		return &sessionStore{Store: ms, close: ms.Stop}, nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}

// warnOnRedirectMismatch flags a redirect URI that the bridge will never receive.
func warnOnRedirectMismatch(redirectURI, bridgeAddr string) {
	if redirectURI == "" {
		return
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		logging.Warn("Bootstrap", "OC_CALLBACK_URL %q is not a valid URL: %v", redirectURI, err)
		return
	}
	if u.Host != bridgeAddr || u.Path != bridge.CallbackPath {
		logging.Warn("Bootstrap", "OC_CALLBACK_URL %s does not point at the callback bridge http://%s%s",
			redirectURI, bridgeAddr, bridge.CallbackPath)
	}
}
