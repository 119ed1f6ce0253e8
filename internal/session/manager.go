package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ocbridge/pkg/logging"

	"github.com/google/uuid"
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	// Secure marks the cookie HTTPS-only. Set it when the public URL is https.
	Secure bool
}

// Manager binds sessions in a Store to browsers through a signed cookie.
// The cookie carries only the session ID and its HMAC-SHA256 signature.
type Manager struct {
	store  Store
	secret []byte
	opts   Options
}

// NewManager creates a session manager.
func NewManager(store Store, secret []byte, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "ocbridge_session"
	}
	return &Manager{store: store, secret: secret, opts: opts}
}

// GenerateSecret returns a random 32-byte signing key.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// Load returns the session referenced by the request cookie, or a new unsaved
// session if the cookie is missing, forged, or points at an expired session.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return New(uuid.NewString()), nil
	}

	id, ok := m.verify(c.Value)
	if !ok {
		logging.Warn("Session", "Rejected session cookie with invalid signature")
		return New(uuid.NewString()), nil
	}

	s, err := m.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return New(uuid.NewString()), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Reload returns the stored copy of s. Call it after taking the session's
// Locker entry: the copy attached by Middleware was read before the lock and
// may be stale. Unsaved or since-deleted sessions come back as s.
func (m *Manager) Reload(ctx context.Context, s *Session) (*Session, error) {
	if s.IsNew() {
		return s, nil
	}
	fresh, err := m.store.Get(ctx, s.ID)
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}
	return fresh, nil
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	return m.store.Save(ctx, s)
}

// Destroy deletes the session and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return m.store.Delete(ctx, s.ID)
}

// Middleware loads the session for every request, issues the cookie for new
// sessions and attaches the session to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil {
			logging.Error("Session", err, "Failed to load session")
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		if s.IsNew() {
			m.setCookie(w, s.ID)
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, m.Cookie(id))
}

// Cookie returns the signed session cookie for id.
func (m *Manager) Cookie(id string) *http.Cookie {
	c := &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    m.sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		// Lax keeps the cookie on the top-level redirect back from the provider.
		SameSite: http.SameSiteLaxMode,
	}
	if m.opts.TTL > 0 {
		c.MaxAge = int(m.opts.TTL.Seconds())
	}
	return c
}

func (m *Manager) sign(id string) string {
	return fmt.Sprintf("%s|%s", id, computeHMAC(id, m.secret))
}

func (m *Manager) verify(value string) (string, bool) {
	id, sig, found := strings.Cut(value, "|")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(computeHMAC(id, m.secret))) {
		return "", false
	}
	return id, true
}

// Compute HMAC-SHA256 signature of a message using secret
func computeHMAC(message string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
