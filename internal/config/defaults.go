package config

import "time"

const (
	// DefaultScope is requested when OC_SCOPES is unset.
	DefaultScope = "openid profile email org1 org2 eq1 eq2 offline_access"

	// DefaultState is the static state used by auth-url when OC_STATE is unset.
	DefaultState = "state-123"

	// DefaultEquipmentURL is the Operations Center equipment collection.
	DefaultEquipmentURL = "https://equipmentapi.deere.com/isg/equipment"

	DefaultListenAddr = "127.0.0.1:5000"
	DefaultPublicURL  = "http://127.0.0.1:5000"
	DefaultBridgeAddr = "127.0.0.1:9090"

	DefaultSessionCookieName = "ocbridge_session"
	DefaultSessionTTL        = 24 * time.Hour

	DefaultMetadataTimeout = 10 * time.Second
	DefaultTokenTimeout    = 15 * time.Second
	DefaultResourceTimeout = 30 * time.Second
)

// GetDefaultConfig returns the built-in configuration. Credentials are left
// empty and must come from the config file or the environment.
func GetDefaultConfig() Config {
	return Config{
		OperationsCenter: OperationsCenterConfig{
			Scope:        DefaultScope,
			State:        DefaultState,
			EquipmentURL: DefaultEquipmentURL,
		},
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
			PublicURL:  DefaultPublicURL,
		},
		Bridge: BridgeConfig{
			Enabled: true,
			Addr:    DefaultBridgeAddr,
		},
		Session: SessionConfig{
			Backend:    SessionBackendMemory,
			CookieName: DefaultSessionCookieName,
			TTL:        DefaultSessionTTL,
		},
		Timeouts: TimeoutConfig{
			Metadata: DefaultMetadataTimeout,
			Token:    DefaultTokenTimeout,
			Resource: DefaultResourceTimeout,
		},
	}
}
