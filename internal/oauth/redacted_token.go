package oauth

import (
	"fmt"
	"log/slog"
)

const redacted = "[REDACTED]"

// RedactedToken wraps a sensitive token string to prevent accidental logging.
//
//	token := oauth.NewRedactedToken("secret-token-value")
//	fmt.Println(token)           // prints: [REDACTED]
//	actualValue := token.Value() // returns: "secret-token-value"
type RedactedToken struct {
	value string
}

// NewRedactedToken creates a new RedactedToken wrapping the given value.
func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the actual token value. Never log the result.
func (t RedactedToken) Value() string {
	return t.value
}

// IsEmpty returns true if the token value is empty.
func (t RedactedToken) IsEmpty() bool {
	return t.value == ""
}

func (t RedactedToken) String() string {
	if t.value == "" {
		return ""
	}
	return redacted
}

func (t RedactedToken) GoString() string {
	return "oauth.RedactedToken{" + redacted + "}"
}

// MarshalText implements encoding.TextMarshaler.
func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// LogValue implements slog.LogValuer.
func (t RedactedToken) LogValue() slog.Value {
	return slog.StringValue(t.String())
}

// String prints the token set with both tokens redacted, so a TokenSet can be
// passed to a logger or wrapped into an error without leaking credentials.
func (t TokenSet) String() string {
	expires := "none"
	if !t.ExpiresAt.IsZero() {
		expires = t.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return fmt.Sprintf("TokenSet{access=%s refresh=%s expires=%s}",
		NewRedactedToken(t.AccessToken), NewRedactedToken(t.RefreshToken), expires)
}

func (t TokenSet) GoString() string {
	return "oauth." + t.String()
}

// LogValue implements slog.LogValuer.
func (t TokenSet) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("access_token", NewRedactedToken(t.AccessToken)),
		slog.Any("refresh_token", NewRedactedToken(t.RefreshToken)),
		slog.Time("expires_at", t.ExpiresAt),
	)
}
