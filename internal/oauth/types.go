package oauth

import (
	"encoding/json"
	"time"
)

// ProviderMetadata is the subset of the provider discovery document that
// ocbridge reads.
type ProviderMetadata struct {
	Issuer                string `json:"issuer,omitempty"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	JwksURI               string `json:"jwks_uri,omitempty"`
}

// TokenSet is the credential state of one Client. It is always replaced as a
// whole.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is computed when the token response is accepted. The zero
	// value means the provider did not say when the token expires.
	ExpiresAt time.Time
}

// IsExpired reports whether the access token has expired at now.
// Tokens without an expiration time never expire.
func (t TokenSet) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// State derives the lifecycle state at now.
func (t TokenSet) State(now time.Time) TokenState {
	switch {
	case t.AccessToken == "":
		return TokenStateUnauthorized
	case t.IsExpired(now):
		return TokenStateExpired
	default:
		return TokenStateAuthorized
	}
}

// TokenState is the lifecycle state of a TokenSet.
type TokenState int

const (
	// TokenStateUnauthorized means there is no access token.
	TokenStateUnauthorized TokenState = iota
	// TokenStateAuthorized means there is an access token not known to be expired.
	TokenStateAuthorized
	// TokenStateExpired means the access token's expiry has passed.
	TokenStateExpired
)

// String makes TokenState satisfy the fmt.Stringer interface.
func (s TokenState) String() string {
	switch s {
	case TokenStateUnauthorized:
		return "Unauthorized"
	case TokenStateAuthorized:
		return "Authorized"
	case TokenStateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// MachineSummary is the projection of one equipment record.
type MachineSummary struct {
	SerialNumber string `json:"serialNumber"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Type         string `json:"type"`
	// Year is passed through as sent; the API is not consistent about
	// number versus string.
	Year json.RawMessage `json:"year"`
}

// MachineListing is the result of one equipment page fetch.
type MachineListing struct {
	Machines []MachineSummary
	// Skipped counts records that could not be decoded.
	Skipped int
	// Truncated is true when the page was full, so more records may exist.
	Truncated bool
}
