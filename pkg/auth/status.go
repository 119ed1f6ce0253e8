package auth

import "time"

// Operations Center token states reported in OperationsCenterStatus.State.
const (
	StateUnauthorized = "unauthorized"
	StateAuthorized   = "authorized"
	StateExpired      = "expired"
)

// StatusResponse represents the structured authentication state of the
// current browser session. This is the body of GET /auth/status.
type StatusResponse struct {
	// LocalAuth describes the application's own login
	LocalAuth LocalAuthStatus `json:"local_auth"`

	// OperationsCenter describes the mirrored Operations Center tokens
	OperationsCenter OperationsCenterStatus `json:"operations_center"`
}

// LocalAuthStatus describes the local login state.
type LocalAuthStatus struct {
	Authenticated bool `json:"authenticated"`
}

// OperationsCenterStatus describes the Operations Center token state for the
// session. Token values are never included.
type OperationsCenterStatus struct {
	// State is one of: "unauthorized", "authorized", "expired"
	State string `json:"state"`

	// ExpiresAt is present when the provider reported a lifetime
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// CanRefresh is true when a refresh token is held
	CanRefresh bool `json:"can_refresh"`

	// LoginURL is present when the user has to log in again
	LoginURL string `json:"login_url,omitempty"`
}
