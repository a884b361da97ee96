// Package session holds the authenticated identity of the single user of
// this client and drives the login and logout transitions.
//
// A Store starts anonymous. Restore resolves the persisted projection once
// at startup; Login and Logout move between the two states; Invalidate is
// called by the transport when the server reports the session gone.
package session
