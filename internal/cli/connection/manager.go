// Package connection assembles the client runtime for a CLI invocation:
// credential store, transport, session and the cached repositories.
package connection

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/multierr"

	"github.com/yndnr/garagebook-go/internal/appointment"
	"github.com/yndnr/garagebook-go/internal/catalog"
	"github.com/yndnr/garagebook-go/internal/cli/config"
	"github.com/yndnr/garagebook-go/internal/client"
	"github.com/yndnr/garagebook-go/internal/infra/tlsroots"
	"github.com/yndnr/garagebook-go/internal/session"
	"github.com/yndnr/garagebook-go/internal/storage"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

// Runtime is the wired client stack.
type Runtime struct {
	Store        storage.KV
	Client       *client.Client
	Session      *session.Store
	Appointments *appointment.Repository
	Catalog      *catalog.Catalog
}

// Manager builds the Runtime on first use and tears it down on Close.
type Manager struct {
	cfg       *config.CLIConfig
	logger    logger.Logger
	metrics   *metric.Registry
	transport http.RoundTripper
	store     storage.KV

	mu      sync.Mutex
	current *Runtime
}

// Option configures a Manager.
type Option func(*Manager)

// WithTransport routes HTTP through rt instead of the default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Manager) { m.transport = rt }
}

// WithStore uses kv instead of opening the configured engine. The manager
// still closes it.
func WithStore(kv storage.KV) Option {
	return func(m *Manager) { m.store = kv }
}

// NewManager creates a manager for cfg.
func NewManager(cfg *config.CLIConfig, log logger.Logger, metrics *metric.Registry, opts ...Option) *Manager {
	if log == nil {
		log = logger.Default()
	}
	m := &Manager{cfg: cfg, logger: log, metrics: metrics}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect returns the runtime, building it on first call. The persisted
// session is restored as part of building.
func (m *Manager) Connect(ctx context.Context) (*Runtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, nil
	}

	store := m.store
	if store == nil {
		var err error
		store, err = storage.Open(m.cfg.StorageConfig(), m.logger)
		if err != nil {
			return nil, fmt.Errorf("open state: %w", err)
		}
	}

	rt, err := m.build(ctx, store)
	if err != nil {
		store.Close()
		m.store = nil
		return nil, err
	}
	m.current = rt
	return rt, nil
}

func (m *Manager) build(ctx context.Context, store storage.KV) (*Runtime, error) {
	opts := []client.Option{
		client.WithStore(store),
		client.WithLogger(m.logger),
		client.WithMetrics(m.metrics),
	}
	if m.transport != nil {
		opts = append(opts, client.WithTransport(m.transport))
	} else {
		tc, err := tlsroots.ClientTLS(m.cfg.API.CAFile)
		if err != nil {
			return nil, fmt.Errorf("load api.ca_file: %w", err)
		}
		opts = append(opts, client.WithTLSConfig(tc))
	}

	c, err := client.New(ctx, m.cfg.ClientConfig(), opts...)
	if err != nil {
		return nil, err
	}

	sess := session.NewStore(c, store, m.logger)
	c.SetInvalidator(sess)

	appts := appointment.New(c, m.logger, m.metrics)
	services := catalog.New(c, m.logger, m.metrics)
	sess.OnAnonymous(appts.Reset)
	sess.OnAnonymous(services.Reset)

	state := sess.Restore(ctx)
	m.logger.Debug("runtime ready", "server", c.BaseURL(), "session", state.String())

	engine := m.cfg.StorageConfig().Engine
	if m.store != nil {
		engine = "injected"
	}
	if err := m.metrics.Register(metric.NewCollector(func() metric.State {
		return metric.State{Authenticated: sess.IsAuthenticated(), StoreEngine: engine}
	})); err != nil {
		m.logger.Warn("state collector not registered", "error", err)
	}

	return &Runtime{
		Store:        store,
		Client:       c,
		Session:      sess,
		Appointments: appts,
		Catalog:      services,
	}, nil
}

// Current returns the runtime if Connect succeeded, nil otherwise.
func (m *Manager) Current() *Runtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsConnected reports whether the runtime has been built.
func (m *Manager) IsConnected() bool {
	return m.Current() != nil
}

// Close dumps metrics when a textfile is configured and closes the store.
// It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.metrics.WriteTextfile(m.cfg.Metrics.Textfile)
	if err != nil {
		err = fmt.Errorf("write metrics: %w", err)
	}
	if m.current != nil {
		err = multierr.Append(err, m.current.Store.Close())
		m.current = nil
		m.store = nil
	}
	return err
}
