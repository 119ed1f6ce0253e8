// Package bridge runs the loopback listener registered as the Operations
// Center redirect URI.
//
// The provider redirects the browser to http://127.0.0.1:9090/callback. The
// bridge answers with a 302 to the main application's /auth/callback, carrying
// the code and state unchanged, so the main application can keep its own
// address. Requests without a code get 400 "Missing code" and any other path
// gets 404 "Not Found".
package bridge
