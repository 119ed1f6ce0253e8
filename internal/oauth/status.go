package oauth

import (
	"encoding/json"
	"net/http"

	"ocbridge/internal/session"
	"ocbridge/pkg/auth"
)

// HandleStatus reports the login state of the current session as an
// auth.StatusResponse. It never refreshes tokens.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := auth.StatusResponse{
		OperationsCenter: auth.OperationsCenterStatus{State: auth.StateUnauthorized},
	}

	sess, ok := session.FromContext(r.Context())
	if ok {
		resp.LocalAuth.Authenticated = h.auth.Authenticated(r, sess)
		resp.OperationsCenter = h.operationsCenterStatus(sess)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) operationsCenterStatus(sess *session.Session) auth.OperationsCenterStatus {
	tokens := HydrateTokens(sess)
	status := auth.OperationsCenterStatus{CanRefresh: tokens.RefreshToken != ""}
	if !tokens.ExpiresAt.IsZero() {
		expiresAt := tokens.ExpiresAt.UTC()
		status.ExpiresAt = &expiresAt
	}

	switch h.factory.New(tokens).State() {
	case TokenStateAuthorized:
		status.State = auth.StateAuthorized
	case TokenStateExpired:
		status.State = auth.StateExpired
	default:
		status.State = auth.StateUnauthorized
	}

	if status.State == auth.StateUnauthorized || (status.State == auth.StateExpired && !status.CanRefresh) {
		status.LoginURL = "/auth/login"
	}
	return status
}
