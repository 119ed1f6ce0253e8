package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ocbridge/internal/oauth"
	"ocbridge/internal/session"
	"ocbridge/pkg/logging"
)

// Response headers set by the machines route.
const (
	HeaderSkippedRecords = "X-Skipped-Records"
	HeaderTruncated      = "X-Result-Truncated"
)

type machinesResponse struct {
	Values []oauth.MachineSummary `json:"values"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// handleMachines lists the machines of an organization with the caller's
// Operations Center tokens. Refreshed tokens are written back to the session
// whatever the outcome.
func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "session_unavailable"})
		return
	}
	if !s.auth.Authenticated(r, sess) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "login_required"})
		return
	}

	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "org_id is required"})
		return
	}
	embedDevices := r.URL.Query().Get("embed") == "devices"

	unlock := s.locks.Lock(sess.ID)
	defer unlock()

	// Another request for this session may have rotated the tokens while we waited
	sess, err := s.sessions.Reload(r.Context(), sess)
	if err != nil {
		logging.Error("Server", err, "Failed to reload session")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "session_unavailable"})
		return
	}

	tokens := oauth.HydrateTokens(sess)
	if tokens.AccessToken == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not_authorized"})
		return
	}

	client := s.factory.New(tokens)
	listing, err := client.ListMachines(r.Context(), orgID, embedDevices)
	s.persistIfChanged(r.Context(), sess, tokens, client.Tokens())

	if err != nil {
		status, body := classifyMachinesError(err)
		logging.Error("Server", err, "Listing machines for org %s failed (session=%s)",
			orgID, logging.TruncateSessionID(sess.ID))
		writeJSON(w, status, body)
		return
	}

	w.Header().Set(HeaderSkippedRecords, strconv.Itoa(listing.Skipped))
	if listing.Truncated {
		w.Header().Set(HeaderTruncated, "true")
	}
	writeJSON(w, http.StatusOK, machinesResponse{Values: listing.Machines})
}

// classifyMachinesError maps a client error to the route's status and body.
func classifyMachinesError(err error) (int, errorResponse) {
	var notAuthorized *oauth.NotAuthorizedError
	var exchangeErr *oauth.TokenExchangeError
	var cfgErr *oauth.ConfigurationError

	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &exchangeErr):
		return http.StatusUnauthorized, errorResponse{Error: "not_authorized", Detail: err.Error()}
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, errorResponse{Error: "configuration_error", Detail: err.Error()}
	default:
		return http.StatusBadGateway, errorResponse{Error: "oc_api_error", Detail: err.Error()}
	}
}

func (s *Server) persistIfChanged(ctx context.Context, sess *session.Session, before, after oauth.TokenSet) {
	if before.AccessToken == after.AccessToken &&
		before.RefreshToken == after.RefreshToken &&
		before.ExpiresAt.Equal(after.ExpiresAt) {
		return
	}
	oauth.PersistTokens(sess, after)
	if err := s.sessions.Save(ctx, sess); err != nil {
		logging.Error("Server", err, "Failed to store refreshed tokens for session=%s",
			logging.TruncateSessionID(sess.ID))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Server", "Failed to write JSON response: %v", err)
	}
}
