package oauth

import (
	"strconv"
	"time"

	"ocbridge/internal/session"
)

// Session keys under which the TokenSet is mirrored.
const (
	SessionAccessTokenKey  = "oc_access_token"
	SessionRefreshTokenKey = "oc_refresh_token"
	SessionExpiresAtKey    = "oc_expires_at"
)

// HydrateTokens reads the mirrored TokenSet from a session.
// A missing or malformed expiry yields a zero ExpiresAt.
func HydrateTokens(s *session.Session) TokenSet {
	t := TokenSet{
		AccessToken:  s.Get(SessionAccessTokenKey),
		RefreshToken: s.Get(SessionRefreshTokenKey),
	}
	if raw := s.Get(SessionExpiresAtKey); raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && unix > 0 {
			t.ExpiresAt = time.Unix(unix, 0)
		}
	}
	return t
}

// PersistTokens writes t into the session, replacing any earlier copy.
func PersistTokens(s *session.Session, t TokenSet) {
	setOrDelete(s, SessionAccessTokenKey, t.AccessToken)
	setOrDelete(s, SessionRefreshTokenKey, t.RefreshToken)
	if t.ExpiresAt.IsZero() {
		s.Delete(SessionExpiresAtKey)
	} else {
		s.Set(SessionExpiresAtKey, strconv.FormatInt(t.ExpiresAt.Unix(), 10))
	}
}

// ClearTokens removes the mirrored TokenSet from the session.
func ClearTokens(s *session.Session) {
	s.Delete(SessionAccessTokenKey)
	s.Delete(SessionRefreshTokenKey)
	s.Delete(SessionExpiresAtKey)
}

func setOrDelete(s *session.Session, key, value string) {
	if value == "" {
		s.Delete(key)
		return
	}
	s.Set(key, value)
}
