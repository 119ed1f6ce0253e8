package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ocbridge/pkg/logging"
)

const (
	// CallbackPath is the only path the bridge serves.
	CallbackPath = "/callback"

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

// Config configures the loopback bridge.
type Config struct {
	// Addr is the host:port to listen on, normally 127.0.0.1:9090. It must
	// match the redirect URI registered at the provider.
	Addr string
	// ForwardURL is the main application's callback, e.g.
	// http://127.0.0.1:5000/auth/callback.
	ForwardURL string
}

// Bridge is a small HTTP listener on the registered redirect URI that turns
// the provider's redirect into a redirect to the main application.
type Bridge struct {
	cfg Config

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	errCh    chan error
}

// New creates a Bridge. It does not listen until Start is called.
func New(cfg Config) *Bridge {
	return &Bridge{
		cfg:   cfg,
		errCh: make(chan error, 1),
	}
}

// Start binds the listener and serves in a background goroutine. A bind
// failure is returned to the caller.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.server != nil {
		return errors.New("bridge already started")
	}

	listener, err := net.Listen("tcp", b.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to start callback bridge on %s: %w", b.cfg.Addr, err)
	}

	b.listener = listener
	b.server = &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start serving in a goroutine
	go func() {
		if err := b.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Bridge", err, "Callback bridge stopped unexpectedly")
			select {
			case b.errCh <- err:
			default:
			}
		}
	}()

	logging.Info("Bridge", "Callback bridge listening on http://%s%s, forwarding to %s",
		listener.Addr().String(), CallbackPath, b.cfg.ForwardURL)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (b *Bridge) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Errors reports a serve failure after a successful Start.
func (b *Bridge) Errors() <-chan error {
	return b.errCh
}

// Shutdown gracefully stops the bridge.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	server := b.server
	b.mu.Unlock()

	if server == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}
	return server.Shutdown(ctx)
}

// Handler returns the bridge's request handler.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(b.serveHTTP)
}

func (b *Bridge) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != CallbackPath {
		writePlain(w, http.StatusNotFound, "Not Found")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writePlain(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")

	if code == "" {
		if providerErr := query.Get("error"); providerErr != "" {
			logging.Warn("Bridge", "Provider redirected without code: %s - %s",
				providerErr, query.Get("error_description"))
		} else {
			logging.Warn("Bridge", "Callback request without code")
		}
		writePlain(w, http.StatusBadRequest, "Missing code")
		return
	}

	http.Redirect(w, r, ForwardLocation(b.cfg.ForwardURL, code, state), http.StatusFound)
}

// ForwardLocation builds the main application callback URL carrying code and
// state. A missing state is forwarded as an empty value.
func ForwardLocation(forwardURL, code, state string) string {
	values := url.Values{}
	values.Set("code", code)
	values.Set("state", state)

	sep := "?"
	if strings.Contains(forwardURL, "?") {
		sep = "&"
	}
	return forwardURL + sep + values.Encode()
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
