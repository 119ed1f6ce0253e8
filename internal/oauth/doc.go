// Package oauth implements the Operations Center side of ocbridge: provider
// discovery, the authorization code grant, token refresh and authenticated
// calls to the equipment API.
//
// # Components
//
//   - Resolver fetches the provider discovery document once per process.
//     Concurrent first calls share a single request.
//   - Client holds one user's TokenSet. It builds the authorization URL,
//     exchanges codes and refreshes tokens through golang.org/x/oauth2 using
//     HTTP Basic client authentication, and calls the resource API.
//   - Factory creates per-request Clients that share the Resolver.
//   - StateStore issues single-use login states bound to a session.
//   - Handler serves GET /auth/login, GET /auth/callback, POST /auth/logout
//     and GET /auth/status.
//   - HydrateTokens and PersistTokens mirror a TokenSet into the session.
//
// # Token Lifecycle
//
// A Client starts Unauthorized. ExchangeCode makes it Authorized. Once the
// expiry passes it is Expired, and the next CallResource refreshes exactly
// once before issuing the request. A refresh without a refresh token fails
// with NotAuthorizedError and the user has to log in again.
//
// # Errors
//
//   - *ConfigurationError: client credentials missing, fatal.
//   - *UpstreamUnavailableError: discovery or token endpoint unreachable.
//   - *TokenExchangeError: the token endpoint rejected the grant.
//   - *NotAuthorizedError: no usable token.
//   - *ResourceAPIError: the equipment API call failed.
//
// Token values are never logged. TokenSet and RedactedToken print as
// [REDACTED] through fmt and log/slog.
package oauth
