package session

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned by a Store when no live session has the given ID.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state bound to one browser via the session cookie.
type Session struct {
	ID        string            `json:"id"`
	Values    map[string]string `json:"values"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// isNew is true until the session has been saved once.
	isNew bool
}

// New creates an empty, unsaved session with the given ID.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Values:    make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
		isNew:     true,
	}
}

// Get returns the value stored under key, or "" if absent.
func (s *Session) Get(key string) string {
	if s.Values == nil {
		return ""
	}
	return s.Values[key]
}

// Set stores value under key.
func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[key] = value
}

// Delete removes key from the session.
func (s *Session) Delete(key string) {
	delete(s.Values, key)
}

// Pop returns the value under key and removes it.
func (s *Session) Pop(key string) string {
	v := s.Get(key)
	s.Delete(key)
	return v
}

// IsNew reports whether the session has never been persisted.
func (s *Session) IsNew() bool {
	return s.isNew
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Values = make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		c.Values[k] = v
	}
	return &c
}

// Store persists sessions by ID.
type Store interface {
	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Save creates or replaces the session and refreshes its expiry.
	Save(ctx context.Context, s *Session) error
	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

// Authenticator decides whether the request belongs to a locally logged-in
// user. Local login itself is handled elsewhere in the application.
type Authenticator interface {
	Authenticated(r *http.Request, s *Session) bool
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(r *http.Request, s *Session) bool

// Authenticated implements Authenticator.
func (f AuthenticatorFunc) Authenticated(r *http.Request, s *Session) bool {
	return f(r, s)
}

// AllowAll treats every request as locally authenticated.
var AllowAll Authenticator = AuthenticatorFunc(func(*http.Request, *Session) bool { return true })

// UserIDKey is the session key the local login flow sets for a signed-in user.
const UserIDKey = "user_id"

// RequireUserID authenticates requests whose session carries UserIDKey.
var RequireUserID Authenticator = AuthenticatorFunc(func(_ *http.Request, s *Session) bool {
	return s != nil && s.Get(UserIDKey) != ""
})

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by Manager.Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
