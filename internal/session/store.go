package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/multierr"

	"github.com/yndnr/garagebook-go/internal/core/domain"
	"github.com/yndnr/garagebook-go/internal/storage"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
)

// IdentityKey is the storage key holding the identity projection.
const IdentityKey = "user"

// tombstone replaces an identity record that cannot be deleted. It never
// decodes to a valid identity.
var tombstone = []byte("null")

// Remote endpoints.
const (
	LoginPath  = "/api/login"
	MePath     = "/api/me"
	LogoutPath = "/api/logout"
)

// State is the session state.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Transport is the subset of the client the store needs.
type Transport interface {
	Do(ctx context.Context, method, path string, body, out any) error
	PurgeCredentials(ctx context.Context) error
}

// Store holds the current identity.
type Store struct {
	transport Transport
	kv        storage.KV
	logger    logger.Logger

	// opMu serializes Login and Logout. It is never taken by Invalidate so a
	// 401 during login cannot deadlock.
	opMu sync.Mutex

	mu          sync.RWMutex
	identity    *domain.Identity
	onAnonymous []func()
}

// NewStore creates an anonymous store. Call Restore to load a persisted identity.
func NewStore(transport Transport, kv storage.KV, log logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	return &Store{
		transport: transport,
		kv:        kv,
		logger:    log.With("component", "session"),
	}
}

// OnAnonymous registers fn to run after every transition to anonymous.
func (s *Store) OnAnonymous(fn func()) {
	s.mu.Lock()
	s.onAnonymous = append(s.onAnonymous, fn)
	s.mu.Unlock()
}

// Restore loads the persisted identity projection and returns the resulting
// state. A missing record means anonymous; an unreadable or malformed one is
// deleted and also means anonymous.
func (s *Store) Restore(ctx context.Context) State {
	data, err := s.kv.Get(ctx, IdentityKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("identity record unreadable, discarding", "error", err)
			s.logDiscard(ctx)
		}
		s.setIdentity(nil)
		return Anonymous
	}

	if bytes.Equal(data, tombstone) {
		s.setIdentity(nil)
		return Anonymous
	}

	identity, err := domain.UnmarshalIdentity(data)
	if err != nil {
		s.logger.Warn("identity record malformed, discarding", "error", err)
		s.logDiscard(ctx)
		s.setIdentity(nil)
		return Anonymous
	}

	s.setIdentity(&identity)
	s.logger.Debug("identity restored", "user_id", identity.ID.String())
	return Authenticated
}

// Login authenticates, fetches the identity and persists its projection.
// On any failure the store ends anonymous with nothing persisted and the
// original error is returned.
func (s *Store) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	creds := map[string]string{"email": email, "password": password}
	if err := s.transport.Do(ctx, http.MethodPost, LoginPath, creds, nil); err != nil {
		s.abort(ctx)
		return domain.Identity{}, err
	}

	var user domain.User
	if err := s.transport.Do(ctx, http.MethodGet, MePath, nil, &user); err != nil {
		s.abort(ctx)
		return domain.Identity{}, err
	}

	identity := user.Project()
	if err := identity.Validate(); err != nil {
		s.abort(ctx)
		return domain.Identity{}, err
	}

	data, err := domain.MarshalIdentity(identity)
	if err != nil {
		s.abort(ctx)
		return domain.Identity{}, err
	}
	if err := s.kv.Set(ctx, IdentityKey, data); err != nil {
		s.abort(ctx)
		return domain.Identity{}, err
	}

	s.setIdentity(&identity)
	s.logger.Info("logged in", "user_id", identity.ID.String())
	return identity, nil
}

// Logout invalidates the remote session, then clears the identity, the
// persisted record and every credential whatever the remote outcome.
// An already-gone session counts as success. Any other remote error, and any
// failure to remove the persisted session, is returned after the in-memory
// state is cleared.
func (s *Store) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	remoteErr := s.transport.Do(ctx, http.MethodPost, LogoutPath, nil, nil)
	if errors.Is(remoteErr, domain.ErrUnauthenticated) {
		remoteErr = nil
	}
	clearErr := s.clear(ctx)

	if err := multierr.Append(remoteErr, clearErr); err != nil {
		s.logger.Warn("logout incomplete", "remote_error", remoteErr, "local_error", clearErr)
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// Invalidate implements client.Invalidator: the server said the session is gone.
func (s *Store) Invalidate(ctx context.Context) error {
	return s.clear(ctx)
}

// Identity returns the current identity, if any.
func (s *Store) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// State returns the current state.
func (s *Store) State() State {
	if s.IsAuthenticated() {
		return Authenticated
	}
	return Anonymous
}

// IsAuthenticated reports whether an identity is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

func (s *Store) setIdentity(identity *domain.Identity) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
}

// clear is the full local teardown: identity, persisted record, credentials.
// The in-memory state is always cleared; the error reports storage that may
// still hold the session.
func (s *Store) clear(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	hooks := append([]func(){}, s.onAnonymous...)
	s.mu.Unlock()

	err := s.discard(ctx)
	if perr := s.transport.PurgeCredentials(ctx); perr != nil {
		err = multierr.Append(err, fmt.Errorf("purge credentials: %w", perr))
	}

	for _, fn := range hooks {
		fn()
	}
	return err
}

// abort clears after a failed login. The login error wins; storage
// failures are only logged.
func (s *Store) abort(ctx context.Context) {
	if err := s.clear(ctx); err != nil {
		s.logger.Warn("clear after failed login", "error", err)
	}
}

func (s *Store) discard(ctx context.Context) error {
	if err := storage.Erase(ctx, s.kv, IdentityKey, tombstone); err != nil {
		return fmt.Errorf("identity record: %w", err)
	}
	return nil
}

func (s *Store) logDiscard(ctx context.Context) {
	if err := s.discard(ctx); err != nil {
		s.logger.Warn("discard identity record", "error", err)
	}
}
