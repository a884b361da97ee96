// Package storage provides the client's persistent key-value store.
//
// The client keeps two records between runs: the projected user identity
// and the serialized cookie jar holding the session and CSRF cookies.
//
//   - badger.go: durable store backed by Badger v3 (default)
//   - memory.go: process-local store for tests and state.engine=memory
//   - sealed.go: AEAD encryption of values at rest, keyed from a local key file
package storage
