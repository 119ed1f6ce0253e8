package config

import "time"

// Config is the top-level configuration structure for ocbridge.
type Config struct {
	OperationsCenter OperationsCenterConfig `yaml:"operationsCenter"`
	Server           ServerConfig           `yaml:"server"`
	Bridge           BridgeConfig           `yaml:"bridge"`
	Session          SessionConfig          `yaml:"session"`
	Timeouts         TimeoutConfig          `yaml:"timeouts"`
}

// OperationsCenterConfig holds the confidential client registration at the
// Operations Center identity provider.
type OperationsCenterConfig struct {
	ClientID     string `yaml:"clientId,omitempty"`     // OC_CLIENT_ID
	ClientSecret string `yaml:"clientSecret,omitempty"` // OC_CLIENT_SECRET
	WellKnownURL string `yaml:"wellKnownUrl,omitempty"` // OC_WELL_KNOWN
	RedirectURI  string `yaml:"redirectUri,omitempty"`  // OC_CALLBACK_URL, must equal the bridge address
	Scope        string `yaml:"scope,omitempty"`        // OC_SCOPES, space separated
	State        string `yaml:"state,omitempty"`        // OC_STATE, static state for auth-url
	EquipmentURL string `yaml:"equipmentUrl,omitempty"` // OC_EQUIPMENT_URL
}

// ServerConfig configures the main web server.
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"` // OCBRIDGE_LISTEN_ADDR
	PublicURL  string `yaml:"publicUrl,omitempty"`  // OCBRIDGE_PUBLIC_URL, base for /auth/callback

	// RequireLocalLogin guards the protected routes with the session's
	// user_id, set by the application's own login flow.
	RequireLocalLogin bool   `yaml:"requireLocalLogin"`       // OCBRIDGE_REQUIRE_LOCAL_LOGIN
	LocalLoginURL     string `yaml:"localLoginUrl,omitempty"` // OCBRIDGE_LOCAL_LOGIN_URL, implies RequireLocalLogin
}

// BridgeConfig configures the loopback callback listener.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"` // OCBRIDGE_BRIDGE_ADDR
}

// SessionBackend selects the session store implementation.
type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendRedis  SessionBackend = "redis"
)

// SessionConfig configures session storage and the session cookie.
type SessionConfig struct {
	Backend    SessionBackend `yaml:"backend,omitempty"`    // OCBRIDGE_SESSION_BACKEND
	Secret     string         `yaml:"secret,omitempty"`     // OCBRIDGE_SESSION_SECRET
	RedisURL   string         `yaml:"redisUrl,omitempty"`   // REDIS_URL
	CookieName string         `yaml:"cookieName,omitempty"` // Name of the session cookie
	TTL        time.Duration  `yaml:"ttl,omitempty"`        // Idle lifetime of a session
}

// TimeoutConfig holds the fixed per-operation upstream timeouts.
type TimeoutConfig struct {
	Metadata time.Duration `yaml:"metadata,omitempty"`
	Token    time.Duration `yaml:"token,omitempty"`
	Resource time.Duration `yaml:"resource,omitempty"`
}
