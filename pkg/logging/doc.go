// Package logging provides the structured logging used across ocbridge.
//
// It is a thin layer over the standard slog package that tags every entry with
// a subsystem name, so log lines from the loopback bridge, the OAuth client and
// the web server can be filtered independently.
//
// # Initialization
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stderr)
//
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Bridge", "Callback bridge unavailable")
//	logging.Error("OAuth", err, "Token exchange failed")
//
// # Subsystems
//
//   - Bootstrap: process startup and shutdown
//   - Config: configuration loading
//   - OAuth: discovery, code exchange, refresh, resource calls
//   - Bridge: the loopback callback listener
//   - Server: the main web server and its routes
//   - Session: session storage
//
// # Audit Logging
//
// Token exchange and refresh outcomes are emitted as audit events:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:    "token_exchange",
//	    Outcome:   "success",
//	    SessionID: logging.TruncateSessionID(sessionID),
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix. Access and
// refresh tokens must never be passed to any logging function.
package logging
