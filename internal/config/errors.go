package config

import (
	"fmt"
	"strings"
)

// Environment variable names for the Operations Center client registration.
const (
	EnvClientID     = "OC_CLIENT_ID"
	EnvClientSecret = "OC_CLIENT_SECRET"
	EnvWellKnown    = "OC_WELL_KNOWN"
	EnvCallbackURL  = "OC_CALLBACK_URL"
	EnvScopes       = "OC_SCOPES"
	EnvState        = "OC_STATE"
	EnvEquipmentURL = "OC_EQUIPMENT_URL"
)

// ConfigurationError reports required client credentials that are missing.
// It is fatal: retrying the operation cannot succeed until the process is
// reconfigured.
type ConfigurationError struct {
	// Missing lists the environment variable name of every empty field.
	Missing []string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing Operations Center configuration: %s", strings.Join(e.Missing, ", "))
}

// Validate checks that every credential needed before a network call is
// present. The error names all missing fields at once.
func (c OperationsCenterConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{EnvClientID, c.ClientID},
		{EnvClientSecret, c.ClientSecret},
		{EnvWellKnown, c.WellKnownURL},
		{EnvCallbackURL, c.RedirectURI},
		{EnvScopes, c.Scope},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
