package connection

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/garagebook-go/internal/cli/config"
	"github.com/yndnr/garagebook-go/internal/client/clienttest"
	"github.com/yndnr/garagebook-go/internal/session"
	"github.com/yndnr/garagebook-go/internal/storage"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

func testConfig(t *testing.T, url string) *config.CLIConfig {
	t.Helper()
	cfg := config.Default()
	cfg.API.URL = url
	cfg.State.Dir = filepath.Join(t.TempDir(), "state")
	cfg.State.KeyFile = filepath.Join(t.TempDir(), "state.key")
	return cfg
}

func TestManager_ConnectLoginAndRestore(t *testing.T) {
	ctx := context.Background()
	srv := clienttest.NewServer(t)
	cfg := testConfig(t, srv.URL)

	m := NewManager(cfg, logger.NewNop(), metric.NewRegistry())
	assert.False(t, m.IsConnected())

	rt, err := m.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Anonymous, rt.Session.State())

	again, err := m.Connect(ctx)
	require.NoError(t, err)
	assert.Same(t, rt, again)

	_, err = rt.Session.Login(ctx, clienttest.Email, clienttest.Password)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())

	m = NewManager(cfg, logger.NewNop(), metric.NewRegistry())
	rt, err = m.Connect(ctx)
	require.NoError(t, err)
	defer m.Close()

	identity, ok := rt.Session.Identity()
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", identity.Name)

	_, err = rt.Appointments.Load(ctx)
	assert.NoError(t, err, "restored cookies authenticate")
}

func TestManager_TeardownResetsRepositories(t *testing.T) {
	ctx := context.Background()
	srv := clienttest.NewServer(t)
	srv.SeedService("Oil change", "")

	m := NewManager(testConfig(t, srv.URL), logger.NewNop(), nil, WithStore(storage.NewMemoryStore()))
	defer m.Close()
	rt, err := m.Connect(ctx)
	require.NoError(t, err)

	_, err = rt.Session.Login(ctx, clienttest.Email, clienttest.Password)
	require.NoError(t, err)
	services, err := rt.Catalog.Load(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)

	srv.KillSessions()
	_, err = rt.Appointments.Load(ctx)
	require.Error(t, err)

	assert.False(t, rt.Session.IsAuthenticated())
	assert.Empty(t, rt.Catalog.List())
}

func TestManager_CloseWritesMetrics(t *testing.T) {
	srv := clienttest.NewServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "garagebook.prom")

	m := NewManager(cfg, logger.NewNop(), metric.NewRegistry(), WithStore(storage.NewMemoryStore()))
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "garagebook_session_authenticated 0")
	assert.Contains(t, string(data), `garagebook_store_info{engine="injected"} 1`)
}

func TestManager_BadCAFile(t *testing.T) {
	cfg := testConfig(t, "https://garage.example.com")
	cfg.API.CAFile = filepath.Join(t.TempDir(), "absent.pem")

	m := NewManager(cfg, logger.NewNop(), nil, WithStore(storage.NewMemoryStore()))
	_, err := m.Connect(context.Background())
	assert.Error(t, err)
	assert.False(t, m.IsConnected())
}
