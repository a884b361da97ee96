package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/garagebook-go/internal/client"
	"github.com/yndnr/garagebook-go/internal/client/clienttest"
	"github.com/yndnr/garagebook-go/internal/core/domain"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

type fixture struct {
	srv     *clienttest.Server
	repo    *Repository
	metrics *metric.Registry
	service domain.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := clienttest.NewServer(t)
	cfg := client.DefaultConfig()
	cfg.BaseURL = srv.URL

	c, err := client.New(context.Background(), cfg, client.WithLogger(logger.NewNop()))
	require.NoError(t, err)
	require.NoError(t, c.Post(context.Background(), "/api/login",
		map[string]string{"email": clienttest.Email, "password": clienttest.Password}, nil))

	reg := metric.NewRegistry()
	return &fixture{
		srv:     srv,
		repo:    New(c, logger.NewNop(), reg),
		metrics: reg,
		service: domain.ID(srv.SeedService("Oil change", "Engine oil and filter")),
	}
}

func newAppointment(t *testing.T, at string, service domain.ID) domain.NewAppointment {
	t.Helper()
	ts, err := domain.ParseTimestamp(at)
	require.NoError(t, err)
	return domain.NewAppointment{
		Name:            "A",
		Email:           "a@x.com",
		Phone:           "555",
		Vehicle:         "Civic",
		AppointmentTime: ts,
		ServiceTypeID:   service,
	}
}

func TestCreate_ReloadsCache(t *testing.T) {
	f := newFixture(t)

	created, err := f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))
	require.NoError(t, err)

	list := f.repo.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].ID.IsZero())
	assert.Equal(t, domain.StatusPending, list[0].Status)
	assert.Equal(t, "Oil change", list[0].ServiceName())
	assert.Equal(t, list[0], created)

	reqs := f.srv.Requests()
	n := len(reqs)
	assert.Equal(t, http.MethodPost, reqs[n-2].Method)
	assert.Equal(t, http.MethodGet, reqs[n-1].Method)
	assert.Equal(t, Path, reqs[n-1].Path)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheEntries.WithLabelValues("appointments")))
}

func TestCreate_SendsOnlyAcceptedFields(t *testing.T) {
	f := newFixture(t)

	in, err := domain.SanitizeAppointment(map[string]any{
		"name":             "A",
		"email":            "a@x.com",
		"phone":            "555",
		"vehicle":          "Civic",
		"appointment_time": "2024-06-10T09:00:00",
		"service_type_id":  f.service.String(),
		"status":           "completed",
		"is_admin":         true,
	})
	require.NoError(t, err)
	_, err = f.repo.Create(context.Background(), in)
	require.NoError(t, err)

	var posted map[string]any
	for _, r := range f.srv.Requests() {
		if r.Method == http.MethodPost && r.Path == Path {
			require.NoError(t, json.Unmarshal(r.Body, &posted))
		}
	}
	assert.Equal(t,
		[]string{"appointment_time", "email", "name", "phone", "service_type_id", "vehicle"},
		clienttest.SortedKeys(posted))
	assert.Equal(t, "2024-06-10T09:00:00", posted["appointment_time"])
}

func TestCreate_ValidationLeavesCacheUnchanged(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))
	require.NoError(t, err)

	bad := newAppointment(t, "2024-06-10T10:00:00", f.service)
	bad.Phone = ""
	_, err = f.repo.Create(context.Background(), bad)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.FieldErrors("phone"))
	assert.Len(t, f.repo.List(), 1)
}

func TestCreate_ReloadFailureLeavesCacheUnchanged(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.Load(context.Background())
	require.NoError(t, err)

	f.srv.Script(http.MethodGet, Path, http.StatusServiceUnavailable, `{"message":"down"}`)
	_, err = f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Empty(t, f.repo.List())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheReloads.WithLabelValues("appointments", "error")))
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	created, err := f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))
	require.NoError(t, err)

	status := domain.StatusConfirmed
	updated, err := f.repo.Update(context.Background(), created.ID, domain.AppointmentUpdate{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, updated.Status)
	got, err := f.repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
}

func TestUpdate_RejectedLocally(t *testing.T) {
	f := newFixture(t)
	before := len(f.srv.Requests())

	_, err := f.repo.Update(context.Background(), "1", domain.AppointmentUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	bogus := domain.AppointmentStatus("archived")
	_, err = f.repo.Update(context.Background(), "1", domain.AppointmentUpdate{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	assert.Len(t, f.srv.Requests(), before)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	created, err := f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))
	require.NoError(t, err)

	require.NoError(t, f.repo.Delete(context.Background(), created.ID))

	assert.Empty(t, f.repo.List())
	_, err = f.repo.Get(created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_NotFoundPropagates(t *testing.T) {
	f := newFixture(t)

	err := f.repo.Delete(context.Background(), "999")

	var serr *domain.StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.Status)
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))
	require.NoError(t, err)

	slots, err := f.repo.AvailableSlots(context.Background(), "2024-06-10", f.service)
	require.NoError(t, err)
	require.Len(t, slots, 11)

	free := map[string]bool{}
	for _, s := range slots {
		free[s.Time] = s.Available
	}
	assert.False(t, free["09:00"])
	assert.False(t, free["12:00"])
	assert.False(t, free["13:00"])
	assert.True(t, free["08:00"])
	assert.True(t, free["10:00"])

	_, err = f.repo.AvailableSlots(context.Background(), "tomorrow", f.service)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestViews(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.Create(context.Background(), newAppointment(t, "2024-06-11T10:00:00", f.service))
	require.NoError(t, err)
	_, err = f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))
	require.NoError(t, err)

	assert.Len(t, f.repo.ByDate(), 2)
	events := f.repo.CalendarEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "A - Oil change", events[0].Title)
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.Create(context.Background(), newAppointment(t, "2024-06-10T09:00:00", f.service))
	require.NoError(t, err)
	require.True(t, f.repo.Loaded())

	f.repo.Reset()

	assert.Empty(t, f.repo.List())
	assert.False(t, f.repo.Loaded())
}

// gatedRemote blocks Create until release is closed.
type gatedRemote struct {
	mu      sync.Mutex
	items   []domain.Appointment
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRemote) List(context.Context) ([]domain.Appointment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Appointment(nil), g.items...), nil
}

func (g *gatedRemote) Create(_ context.Context, body any) (domain.Appointment, error) {
	close(g.entered)
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	a := domain.Appointment{ID: "new", Status: domain.StatusPending}
	g.items = append(g.items, a)
	return a, nil
}

func (g *gatedRemote) Update(context.Context, domain.ID, any) (domain.Appointment, error) {
	return domain.Appointment{}, nil
}

func (g *gatedRemote) Delete(context.Context, domain.ID) error { return nil }

func TestCreate_ReadersSeeOldCacheUntilReloaded(t *testing.T) {
	remote := &gatedRemote{
		items:   []domain.Appointment{{ID: "old", Status: domain.StatusConfirmed}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	repo := NewWithRemote(remote, logger.NewNop(), nil)
	_, err := repo.Load(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := repo.Create(context.Background(), domain.NewAppointment{})
		done <- err
	}()

	<-remote.entered
	assert.Len(t, repo.List(), 1, "mutation in flight")
	close(remote.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("create did not finish")
	}
	assert.Len(t, repo.List(), 2)
}
