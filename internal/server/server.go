package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"ocbridge/internal/oauth"
	"ocbridge/internal/session"
	"ocbridge/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
)

// Server is the main ocbridge web application. It serves the Operations
// Center login routes and the machines API behind the session middleware.
type Server struct {
	addr     string
	factory  *oauth.Factory
	sessions *session.Manager
	states   *oauth.StateStore
	locks    *session.Locker

	auth          session.Authenticator
	localLoginURL string

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator sets the local-login check shared by every protected route.
func WithAuthenticator(a session.Authenticator) Option {
	return func(s *Server) {
		s.auth = a
	}
}

// WithLocalLoginURL makes /auth/login redirect unauthenticated users there.
func WithLocalLoginURL(u string) Option {
	return func(s *Server) {
		s.localLoginURL = u
	}
}

// New creates a Server listening on addr once Start is called.
func New(addr string, factory *oauth.Factory, sessions *session.Manager, states *oauth.StateStore, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		factory:  factory,
		sessions: sessions,
		states:   states,
		locks:    session.NewLocker(),
		auth:     session.AllowAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMux creates the HTTP handler with every route wrapped in the session
// middleware.
func (s *Server) CreateMux() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no session needed, but harmless)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	handlerOpts := []oauth.HandlerOption{
		oauth.WithAuthenticator(s.auth),
		oauth.WithSessionLocker(s.locks),
	}
	if s.localLoginURL != "" {
		handlerOpts = append(handlerOpts, oauth.WithLocalLoginURL(s.localLoginURL))
	}
	oauth.NewHandler(s.factory, s.sessions, s.states, handlerOpts...).Register(mux)
	logging.Info("Server", "Registered Operations Center login routes")

	mux.HandleFunc("GET /api/oc/machines", s.handleMachines)

	return s.sessions.Middleware(mux)
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.CreateMux(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server", err, "HTTP server stopped unexpectedly")
		}
	}()

	logging.Info("Server", "Listening on http://%s", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}
