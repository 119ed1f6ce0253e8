package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the process-level settings. Operations Center credentials
// are not checked here; they are validated on first use so the server can
// start without them.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Server.ListenAddr == "" {
		errs.Add("server.listenAddr", "is required")
	}
	if c.Server.PublicURL == "" {
		errs.Add("server.publicUrl", "is required")
	} else if u, err := url.Parse(c.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("server.publicUrl", "must be an absolute URL", c.Server.PublicURL)
	}
	if c.Bridge.Enabled && c.Bridge.Addr == "" {
		errs.Add("bridge.addr", "is required when the bridge is enabled")
	}

	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Session.RedisURL == "" {
			errs.Add("session.redisUrl", "is required for the redis backend")
		}
	default:
		errs.Add("session.backend", "must be one of: memory, redis", c.Session.Backend)
	}

	if c.Timeouts.Metadata <= 0 || c.Timeouts.Token <= 0 || c.Timeouts.Resource <= 0 {
		errs.Add("timeouts", "must be positive")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
