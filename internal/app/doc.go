// Package app provides application bootstrap and lifecycle management for ocbridge.
//
// # Architecture Overview
//
//  1. **Bootstrap (`bootstrap.go`)**: logging setup, configuration loading, service construction
//  2. **Configuration (`config.go`)**: runtime settings taken from the command line
//  3. **Services (`services.go`)**: session store, session manager, OAuth components, listeners
//  4. **Modes (`modes.go`)**: serve mode (main server plus bridge) and bridge-only mode
//
// # Configuration Loading
//
// Configuration comes from config.Load: built-in defaults, then config.yaml
// in the configuration directory (~/.config/ocbridge unless --config-path is
// given), then the environment, after .env and AWS Secrets Manager have been
// merged into it.
//
// Missing Operations Center client credentials only produce a warning at
// startup. The first login or API call fails with a configuration error.
//
// # Listeners
//
// Serve mode starts two HTTP servers:
//
//   - the main server on server.listenAddr (default 127.0.0.1:5000)
//   - the callback bridge on bridge.addr (default 127.0.0.1:9090)
//
// A main server that cannot listen is fatal. A bridge that cannot listen is
// logged as a warning and the main server keeps serving, so users that are
// already logged in keep working.
//
// Once the listeners are up, READY=1 is sent to systemd when running under a
// notify service. SIGINT and SIGTERM trigger a graceful shutdown.
//
// # Sessions
//
// The session backend is "memory" (default) or "redis". Without
// OCBRIDGE_SESSION_SECRET a random signing key is generated per process, so
// sessions do not survive a restart.
package app
