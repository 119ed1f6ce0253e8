package oauth

import (
	"fmt"

	"ocbridge/internal/config"
)

// ConfigurationError is returned before any network call when required client
// credentials are missing.
type ConfigurationError = config.ConfigurationError

// UpstreamUnavailableError indicates that the discovery document or the token
// endpoint could not be reached or answered with an unusable response.
type UpstreamUnavailableError struct {
	// Op names the step that failed, e.g. "metadata" or "token".
	Op string
	// URL is the upstream endpoint.
	URL string
	// StatusCode is the HTTP status, or 0 if no response was received.
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *UpstreamUnavailableError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("operations center %s unavailable: %s returned status %d", e.Op, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("operations center %s unavailable: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("operations center %s unavailable", e.Op)
	}
}

// Unwrap returns the underlying error.
func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// TokenExchangeError indicates that the token endpoint rejected a grant.
// The user has to restart the authorization code flow.
type TokenExchangeError struct {
	// GrantType is "authorization_code" or "refresh_token".
	GrantType  string
	StatusCode int
	// Body is the upstream response body, truncated to one line.
	Body string
	Err  error
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token request (%s) rejected with status %d: %s", e.GrantType, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("token request (%s) failed: %v", e.GrantType, e.Err)
	}
	return fmt.Sprintf("token request (%s) failed", e.GrantType)
}

// Unwrap returns the underlying error.
func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// NotAuthorizedError indicates that no usable access token exists and none
// can be obtained without a new login.
type NotAuthorizedError struct {
	Reason string
}

// Error implements the error interface.
func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("not authorized with operations center: %s", e.Reason)
}

// ResourceAPIError indicates that an authenticated resource API call failed
// for reasons other than authorization.
type ResourceAPIError struct {
	URL        string
	StatusCode int
	Body       string
	// Challenge is the parsed WWW-Authenticate header of a rejected call.
	Challenge *BearerChallenge
	Err       error
}

// Error implements the error interface.
func (e *ResourceAPIError) Error() string {
	if e.StatusCode != 0 {
		if e.Challenge != nil && e.Challenge.Error != "" {
			return fmt.Sprintf("operations center API error %d (%s): %s", e.StatusCode, e.Challenge, e.Body)
		}
		return fmt.Sprintf("operations center API error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("operations center API request failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ResourceAPIError) Unwrap() error {
	return e.Err
}
