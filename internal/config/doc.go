// Package config provides configuration management for ocbridge.
//
// Configuration is layered, lowest precedence first:
//
//  1. Built-in defaults (GetDefaultConfig).
//  2. config.yaml in the configuration directory. The default directory is
//     ~/.config/ocbridge; commands accept --config-path to override it.
//  3. The process environment. Before it is read, LoadEnv merges an optional
//     AWS Secrets Manager secret (AWS_SECRETS_MANAGER_SECRET_ID) and a .env
//     file (ENV_FILE_PATH, default ".env") into the environment.
//
// # Example config.yaml
//
//	operationsCenter:
//	  clientId: my-client
//	  wellKnownUrl: https://signin.johndeere.com/oauth2/aus78tnlaysMraFhC1t7/.well-known/oauth-authorization-server
//	  redirectUri: http://127.0.0.1:9090/callback
//	server:
//	  listenAddr: 127.0.0.1:5000
//	  publicUrl: http://127.0.0.1:5000
//	session:
//	  backend: redis
//	  redisUrl: redis://localhost:6379/0
//	timeouts:
//	  resource: 45s
//
// # Credentials
//
// The Operations Center client credentials are not validated at load time.
// OperationsCenterConfig.Validate is called before the first network call
// and returns a *ConfigurationError naming every missing variable.
package config
