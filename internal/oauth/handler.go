package oauth

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"ocbridge/internal/session"
	"ocbridge/pkg/logging"
)

// PostLoginNextKey is the session key holding where to go after login.
const PostLoginNextKey = "post_login_next"

// Handler serves the main application's Operations Center login routes.
type Handler struct {
	factory  *Factory
	sessions *session.Manager
	states   *StateStore
	auth     session.Authenticator
	locks    *session.Locker

	// localLoginURL is where unauthenticated users are sent. Empty means
	// answer 401 instead of redirecting.
	localLoginURL string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAuthenticator sets the local-login check. The default allows everyone.
func WithAuthenticator(a session.Authenticator) HandlerOption {
	return func(h *Handler) {
		h.auth = a
	}
}

// WithLocalLoginURL redirects unauthenticated users to url with ?next=.
func WithLocalLoginURL(u string) HandlerOption {
	return func(h *Handler) {
		h.localLoginURL = u
	}
}

// WithSessionLocker shares the per-session lock with other routes.
func WithSessionLocker(l *session.Locker) HandlerOption {
	return func(h *Handler) {
		h.locks = l
	}
}

// NewHandler creates a new OAuth HTTP handler.
func NewHandler(factory *Factory, sessions *session.Manager, states *StateStore, opts ...HandlerOption) *Handler {
	h := &Handler{
		factory:  factory,
		sessions: sessions,
		states:   states,
		auth:     session.AllowAll,
		locks:    session.NewLocker(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the /auth routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth/login", h.HandleLogin)
	mux.HandleFunc("GET /auth/callback", h.HandleCallback)
	mux.HandleFunc("POST /auth/logout", h.HandleLogout)
	mux.HandleFunc("GET /auth/status", h.HandleStatus)
}

// HandleLogin starts the authorization code flow for a locally logged-in user.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		h.renderErrorPage(w, http.StatusInternalServerError, "Session unavailable.")
		return
	}
	if !h.auth.Authenticated(r, sess) {
		h.requireLocalLogin(w, r)
		return
	}

	unlock := h.locks.Lock(sess.ID)
	defer unlock()

	sess, err := h.sessions.Reload(r.Context(), sess)
	if err != nil {
		logging.Error("OAuth", err, "Failed to reload session")
		h.renderErrorPage(w, http.StatusInternalServerError, "Could not start the login flow.")
		return
	}

	sess.Set(PostLoginNextKey, SafeNext(r.URL.Query().Get("next")))

	state, err := h.states.GenerateState(sess.ID)
	if err != nil {
		logging.Error("OAuth", err, "Failed to generate login state")
		h.renderErrorPage(w, http.StatusInternalServerError, "Could not start the login flow.")
		return
	}

	authURL, err := h.factory.New(TokenSet{}).AuthorizationURLWithState(r.Context(), state)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			logging.Error("OAuth", err, "Operations Center is not configured")
			h.renderErrorPage(w, http.StatusInternalServerError, "Operations Center integration is not configured.")
			return
		}
		logging.Error("OAuth", err, "Failed to build authorization URL")
		h.renderErrorPage(w, http.StatusBadGateway, "Operations Center is unavailable. Please try again later.")
		return
	}

	if err := h.sessions.Save(r.Context(), sess); err != nil {
		logging.Error("OAuth", err, "Failed to save session")
		h.renderErrorPage(w, http.StatusInternalServerError, "Could not start the login flow.")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes the flow after the loopback bridge forwarded the
// provider redirect.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		h.renderErrorPage(w, http.StatusInternalServerError, "Session unavailable.")
		return
	}

	// Extract query parameters
	code := r.URL.Query().Get("code")
	stateParam := r.URL.Query().Get("state")
	errorParam := r.URL.Query().Get("error")
	errorDesc := r.URL.Query().Get("error_description")

	// Handle OAuth errors
	if errorParam != "" {
		logging.Warn("OAuth", "OAuth callback received error: %s - %s", errorParam, errorDesc)
		h.renderErrorPage(w, http.StatusBadRequest, fmt.Sprintf("Authentication failed: %s", errorDesc))
		return
	}

	if code == "" {
		logging.Warn("OAuth", "OAuth callback missing code parameter")
		h.renderErrorPage(w, http.StatusBadRequest, "Invalid callback: missing authorization code.")
		return
	}

	if h.states.ValidateState(stateParam, sess.ID) == nil {
		logging.Warn("OAuth", "OAuth callback with invalid or expired state for session=%s",
			logging.TruncateSessionID(sess.ID))
		h.renderErrorPage(w, http.StatusBadRequest, "Authentication session expired. Please try again.")
		return
	}

	unlock := h.locks.Lock(sess.ID)
	defer unlock()

	sess, err := h.sessions.Reload(r.Context(), sess)
	if err != nil {
		logging.Error("OAuth", err, "Failed to reload session")
		h.renderErrorPage(w, http.StatusInternalServerError, "Could not store the login.")
		return
	}

	client := h.factory.New(TokenSet{})
	if err := client.ExchangeCode(r.Context(), code); err != nil {
		var exchangeErr *TokenExchangeError
		var cfgErr *ConfigurationError
		switch {
		case errors.As(err, &exchangeErr):
			logging.Error("OAuth", err, "Authorization code rejected for session=%s", logging.TruncateSessionID(sess.ID))
			h.renderErrorPage(w, http.StatusBadRequest, "The login could not be completed. Please start the login again.")
		case errors.As(err, &cfgErr):
			logging.Error("OAuth", err, "Operations Center is not configured")
			h.renderErrorPage(w, http.StatusInternalServerError, "Operations Center integration is not configured.")
		default:
			logging.Error("OAuth", err, "Failed to exchange authorization code")
			h.renderErrorPage(w, http.StatusBadGateway, "Operations Center is unavailable. Please try again later.")
		}
		return
	}

	PersistTokens(sess, client.Tokens())
	next := SafeNext(sess.Pop(PostLoginNextKey))

	if err := h.sessions.Save(r.Context(), sess); err != nil {
		logging.Error("OAuth", err, "Failed to save session")
		h.renderErrorPage(w, http.StatusInternalServerError, "Could not store the login.")
		return
	}

	logging.Info("OAuth", "Operations Center login completed for session=%s", logging.TruncateSessionID(sess.ID))
	http.Redirect(w, r, next, http.StatusFound)
}

// HandleLogout forgets the mirrored Operations Center tokens. The local login
// is left alone.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	unlock := h.locks.Lock(sess.ID)
	defer unlock()

	sess, err := h.sessions.Reload(r.Context(), sess)
	if err != nil {
		logging.Error("OAuth", err, "Failed to reload session")
		http.Error(w, "failed to update session", http.StatusInternalServerError)
		return
	}

	ClearTokens(sess)
	if !sess.IsNew() {
		if err := h.sessions.Save(r.Context(), sess); err != nil {
			logging.Error("OAuth", err, "Failed to save session")
			http.Error(w, "failed to update session", http.StatusInternalServerError)
			return
		}
	}
	logging.Audit(logging.AuditEvent{
		Action:    "logout",
		Outcome:   "success",
		SessionID: logging.TruncateSessionID(sess.ID),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireLocalLogin(w http.ResponseWriter, r *http.Request) {
	if h.localLoginURL == "" {
		http.Error(w, "login required", http.StatusUnauthorized)
		return
	}
	target := h.localLoginURL + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}

// SafeNext returns next if it is a same-site relative path, "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// setSecurityHeaders sets recommended security headers for HTML responses.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

// renderErrorPage renders an HTML page indicating an authentication error.
func (h *Handler) renderErrorPage(w http.ResponseWriter, status int, message string) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	// Escape message to prevent XSS attacks
	safeMessage := html.EscapeString(message)

	htmlContent := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Operations Center Login Failed</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #f4f6f5;
            display: flex;
            align-items: center;
            justify-content: center;
            min-height: 100vh;
            margin: 0;
            color: #2b2b2b;
        }
        .container {
            text-align: center;
            padding: 2.5rem;
            background: #fff;
            border-radius: 12px;
            border: 1px solid #dde3df;
            max-width: 480px;
        }
        h1 { font-size: 1.5rem; margin-bottom: 0.5rem; }
        .message { color: #b3261e; margin-top: 1rem; }
        a { color: #367c2b; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Operations Center Login Failed</h1>
        <p class="message">%s</p>
        <p><a href="/auth/login">Start the login again</a></p>
    </div>
</body>
</html>`, safeMessage)

	_, _ = w.Write([]byte(htmlContent))
}
