// Package catalog provides the service type catalog. Unlike appointments,
// service types carry no server-derived fields, so the local cache is
// patched from each mutation response instead of being reloaded.
package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/yndnr/garagebook-go/internal/client"
	"github.com/yndnr/garagebook-go/internal/core/domain"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

// Path is the service type collection endpoint.
const Path = "/api/service-types"

const cacheName = "services"

// Remote is the CRUD surface the catalog needs.
type Remote interface {
	List(ctx context.Context) ([]domain.ServiceType, error)
	Create(ctx context.Context, body any) (domain.ServiceType, error)
	Update(ctx context.Context, id domain.ID, body any) (domain.ServiceType, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Catalog caches the service type list.
type Catalog struct {
	remote  Remote
	logger  logger.Logger
	metrics *metric.Registry

	mutateMu sync.Mutex

	mu    sync.RWMutex
	items []domain.ServiceType
}

// New creates a catalog over c.
func New(c *client.Client, log logger.Logger, metrics *metric.Registry) *Catalog {
	return NewWithRemote(client.NewResource[domain.ServiceType](c, Path), log, metrics)
}

// NewWithRemote creates a catalog over any Remote.
func NewWithRemote(remote Remote, log logger.Logger, metrics *metric.Registry) *Catalog {
	if log == nil {
		log = logger.Default()
	}
	return &Catalog{
		remote:  remote,
		logger:  log.With("component", "catalog"),
		metrics: metrics,
	}
}

// Load fetches the list and replaces the cache.
func (c *Catalog) Load(ctx context.Context) ([]domain.ServiceType, error) {
	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	items, err := c.remote.List(ctx)
	c.metrics.ObserveReload(cacheName, len(items), err)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return c.List(), nil
}

// Create adds a service type and appends the server's record to the cache.
func (c *Catalog) Create(ctx context.Context, in domain.NewServiceType) (domain.ServiceType, error) {
	in = in.Sanitized()
	if in.Name == "" {
		return domain.ServiceType{}, domain.ErrInvalidArgument.WithDetails("name is required")
	}

	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	created, err := c.remote.Create(ctx, in)
	if err != nil {
		return domain.ServiceType{}, err
	}

	c.patch(func(items []domain.ServiceType) []domain.ServiceType {
		return append(items, created)
	})
	c.logger.Info("service type created", "id", created.ID.String())
	return created, nil
}

// Update applies a partial update and replaces the cached record with the
// server's version, or with the update applied locally if the server
// returned an empty body. The returned record always carries id.
func (c *Catalog) Update(ctx context.Context, id domain.ID, in domain.ServiceTypeUpdate) (domain.ServiceType, error) {
	if in.Name == nil && in.Description == nil {
		return domain.ServiceType{}, domain.ErrInvalidArgument.WithDetails("empty update")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.ServiceType{}, domain.ErrInvalidArgument.WithDetails("name cannot be blank")
	}

	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	updated, err := c.remote.Update(ctx, id, in)
	if err != nil {
		return domain.ServiceType{}, err
	}

	c.patch(func(items []domain.ServiceType) []domain.ServiceType {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if updated.ID.IsZero() {
				updated = in.Apply(items[i])
			}
			items[i] = updated
		}
		return items
	})
	if updated.ID.IsZero() {
		// Empty body for a record the cache never held.
		updated = in.Apply(domain.ServiceType{ID: id})
	}
	c.logger.Info("service type updated", "id", id.String())
	return updated, nil
}

// Delete removes the service type and drops it from the cache.
func (c *Catalog) Delete(ctx context.Context, id domain.ID) error {
	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	if err := c.remote.Delete(ctx, id); err != nil {
		return err
	}

	c.patch(func(items []domain.ServiceType) []domain.ServiceType {
		kept := items[:0]
		for _, st := range items {
			if st.ID != id {
				kept = append(kept, st)
			}
		}
		return kept
	})
	c.logger.Info("service type deleted", "id", id.String())
	return nil
}

// List returns a copy of the cache.
func (c *Catalog) List() []domain.ServiceType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ServiceType, len(c.items))
	copy(out, c.items)
	return out
}

// Get looks a service type up in the cache.
func (c *Catalog) Get(id domain.ID) (domain.ServiceType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, st := range c.items {
		if st.ID == id {
			return st, nil
		}
	}
	return domain.ServiceType{}, domain.ErrNotFound.WithDetails("service type " + id.String())
}

// Reset empties the cache.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
	c.metrics.SetCacheEntries(cacheName, 0)
}

// patch swaps in fn's result, computed on a private copy of the cache.
func (c *Catalog) patch(fn func([]domain.ServiceType) []domain.ServiceType) {
	c.mu.Lock()
	next := make([]domain.ServiceType, len(c.items))
	copy(next, c.items)
	c.items = fn(next)
	n := len(c.items)
	c.mu.Unlock()
	c.metrics.SetCacheEntries(cacheName, n)
}
