// Package client implements the cookie-session transport to the
// appointment service.
//
//   - jar.go: cookie jar persisted to storage, with a single Purge for teardown
//   - token.go: CSRF token acquisition and request signing
//   - client.go: the Do exchange primitive with the 419 retry and 401 teardown rules
//   - resource.go: generic JSON CRUD over a collection path
//
// Every request carries the jar's cookies. Mutating requests (POST, PUT,
// PATCH, DELETE) first fetch a fresh CSRF cookie and send its decoded value
// in the token header.
package client
