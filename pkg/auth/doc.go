// Package auth defines the JSON shape of the authentication status endpoint
// so that front ends and scripts can decode it without importing server code.
package auth
