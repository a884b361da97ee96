package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/garagebook-go/internal/client"
	"github.com/yndnr/garagebook-go/internal/core/availability"
	"github.com/yndnr/garagebook-go/internal/core/domain"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

// Path is the appointment collection endpoint.
const Path = "/api/appointments"

const cacheName = "appointments"

// Remote is the CRUD surface the repository needs.
type Remote interface {
	List(ctx context.Context) ([]domain.Appointment, error)
	Create(ctx context.Context, body any) (domain.Appointment, error)
	Update(ctx context.Context, id domain.ID, body any) (domain.Appointment, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Repository caches the appointment list.
type Repository struct {
	remote  Remote
	logger  logger.Logger
	metrics *metric.Registry

	// mutateMu serializes mutations with their reloads.
	mutateMu sync.Mutex

	mu     sync.RWMutex
	items  []domain.Appointment
	loaded bool
}

// New creates a repository over c.
func New(c *client.Client, log logger.Logger, metrics *metric.Registry) *Repository {
	return NewWithRemote(client.NewResource[domain.Appointment](c, Path), log, metrics)
}

// NewWithRemote creates a repository over any Remote.
func NewWithRemote(remote Remote, log logger.Logger, metrics *metric.Registry) *Repository {
	if log == nil {
		log = logger.Default()
	}
	return &Repository{
		remote:  remote,
		logger:  log.With("component", "appointments"),
		metrics: metrics,
	}
}

// Load fetches the full list and replaces the cache. On error the cache is
// left as it was.
func (r *Repository) Load(ctx context.Context) ([]domain.Appointment, error) {
	r.mutateMu.Lock()
	defer r.mutateMu.Unlock()
	return r.reload(ctx)
}

// reload must be called with mutateMu held.
func (r *Repository) reload(ctx context.Context) ([]domain.Appointment, error) {
	items, err := r.remote.List(ctx)
	r.metrics.ObserveReload(cacheName, len(items), err)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.items = items
	r.loaded = true
	r.mu.Unlock()

	r.logger.Debug("appointments reloaded", "count", len(items))
	return clone(items), nil
}

// Create sends only the accepted fields, then reloads. The returned
// appointment is the cached copy, with its embedded service type.
func (r *Repository) Create(ctx context.Context, in domain.NewAppointment) (domain.Appointment, error) {
	r.mutateMu.Lock()
	defer r.mutateMu.Unlock()

	created, err := r.remote.Create(ctx, in.Sanitized())
	if err != nil {
		return domain.Appointment{}, err
	}
	if _, err := r.reload(ctx); err != nil {
		return domain.Appointment{}, err
	}

	r.logger.Info("appointment created", "id", created.ID.String())
	return r.cachedOr(created), nil
}

// Update applies a partial update, then reloads.
func (r *Repository) Update(ctx context.Context, id domain.ID, in domain.AppointmentUpdate) (domain.Appointment, error) {
	if in.IsEmpty() {
		return domain.Appointment{}, domain.ErrInvalidArgument.WithDetails("empty update")
	}
	if in.Status != nil && !in.Status.Valid() {
		return domain.Appointment{}, domain.ErrInvalidStatus.WithDetails(string(*in.Status))
	}

	r.mutateMu.Lock()
	defer r.mutateMu.Unlock()

	updated, err := r.remote.Update(ctx, id, in)
	if err != nil {
		return domain.Appointment{}, err
	}
	if _, err := r.reload(ctx); err != nil {
		return domain.Appointment{}, err
	}

	r.logger.Info("appointment updated", "id", id.String())
	return r.cachedOr(updated), nil
}

// Delete removes the appointment, then reloads.
func (r *Repository) Delete(ctx context.Context, id domain.ID) error {
	r.mutateMu.Lock()
	defer r.mutateMu.Unlock()

	if err := r.remote.Delete(ctx, id); err != nil {
		return err
	}
	if _, err := r.reload(ctx); err != nil {
		return err
	}

	r.logger.Info("appointment deleted", "id", id.String())
	return nil
}

// List returns a copy of the cache.
func (r *Repository) List() []domain.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.items)
}

// Loaded reports whether the cache has been filled at least once since the last Reset.
func (r *Repository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Get looks an appointment up in the cache.
func (r *Repository) Get(id domain.ID) (domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Appointment{}, domain.ErrNotFound.WithDetails("appointment " + id.String())
}

// ByDate returns cached appointments grouped by local date.
func (r *Repository) ByDate() map[string][]domain.Appointment {
	return availability.GroupByDate(r.List())
}

// CalendarEvents projects the cache to calendar events.
func (r *Repository) CalendarEvents() []availability.Event {
	return availability.CalendarEvents(r.List())
}

// Slots computes the day's slots from the cache without any network access.
func (r *Repository) Slots(date time.Time) []domain.TimeSlot {
	return availability.ComputeSlots(date, r.List())
}

// AvailableSlots reloads the list and computes the slots of date
// (YYYY-MM-DD). Every service type occupies one hour, so serviceTypeID does
// not change the result.
func (r *Repository) AvailableSlots(ctx context.Context, date string, serviceTypeID domain.ID) ([]domain.TimeSlot, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if _, err := r.Load(ctx); err != nil {
		return nil, err
	}
	r.logger.Debug("computing slots", "date", date, "service_type_id", serviceTypeID.String())
	return r.Slots(day), nil
}

// Reset empties the cache.
func (r *Repository) Reset() {
	r.mu.Lock()
	r.items = nil
	r.loaded = false
	r.mu.Unlock()
	r.metrics.SetCacheEntries(cacheName, 0)
}

func (r *Repository) cachedOr(fallback domain.Appointment) domain.Appointment {
	if a, err := r.Get(fallback.ID); err == nil {
		return a
	}
	return fallback
}

func clone(items []domain.Appointment) []domain.Appointment {
	out := make([]domain.Appointment, len(items))
	copy(out, items)
	return out
}
