// Package session provides the server-side session used to carry per-user
// state across requests, including the mirrored Operations Center tokens.
//
// A Manager issues a signed cookie holding only the session ID; the session
// body lives in a Store. Two stores are available: MemoryStore for a single
// process and RedisStore when several processes share sessions.
//
// Locker serializes requests that belong to the same session so that a
// refresh-token rotation in one request cannot race another request.
package session
