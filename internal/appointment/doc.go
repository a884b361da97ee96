// Package appointment provides the appointment repository: remote CRUD
// plus a local ordered cache that is reloaded from the server after every
// successful mutation.
//
// The server assigns ids, status and timestamps and embeds the service type
// snapshot, so the cache is never patched locally. A mutation returns only
// after the reload has replaced the cache; callers never see an intermediate
// state.
package appointment
