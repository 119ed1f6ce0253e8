// Package server is the main ocbridge web application.
//
// Every route runs behind the session middleware, so handlers find the
// caller's session in the request context.
//
// # Endpoints
//
//   - GET /health - liveness check, always {"status":"ok"}
//   - GET /auth/login - start the Operations Center login
//   - GET /auth/callback - complete the login (reached through the loopback bridge)
//   - POST /auth/logout - forget the Operations Center tokens
//   - GET /api/oc/machines?org_id=..[&embed=devices] - list machines
//
// # Machines API
//
// The machines route builds a fresh oauth.Client from the session's mirrored
// tokens for every request, holding the per-session lock so that a refresh
// cannot race another request of the same browser. Whatever the outcome,
// refreshed tokens are written back to the session.
//
//	400 {"error":"org_id is required"}
//	401 {"error":"login_required"}                 no local login
//	401 {"error":"not_authorized"}                 no Operations Center tokens
//	401 {"error":"not_authorized","detail":..}     refresh impossible or rejected
//	500 {"error":"configuration_error","detail":..}
//	502 {"error":"oc_api_error","detail":..}
//	200 {"values":[...]}                           X-Skipped-Records: <n>
package server
