package client

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/garagebook-go/internal/client/clienttest"
	"github.com/yndnr/garagebook-go/internal/storage"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
)

func TestCredentialJar_PersistsAcrossClients(t *testing.T) {
	srv := clienttest.NewServer(t)
	store := storage.NewMemoryStore()
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL

	first, err := New(context.Background(), cfg, WithStore(store), WithLogger(logger.NewNop()))
	require.NoError(t, err)
	require.NoError(t, first.Post(context.Background(), "/api/login",
		map[string]string{"email": clienttest.Email, "password": clienttest.Password}, nil))

	second, err := New(context.Background(), cfg, WithStore(store), WithLogger(logger.NewNop()))
	require.NoError(t, err)

	var me map[string]any
	require.NoError(t, second.Get(context.Background(), "/api/me", &me))
	assert.Equal(t, clienttest.Email, me["email"])
}

func TestCredentialJar_CorruptStoreDiscarded(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), CookiesKey, []byte("{garbage")))

	base, _ := url.Parse("http://api.example.com")
	j, err := NewCredentialJar(context.Background(), base, store, logger.NewNop())
	require.NoError(t, err)

	assert.Zero(t, j.Len())
	_, err = store.Get(context.Background(), CookiesKey)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestCredentialJar_ExpiryAndDeletion(t *testing.T) {
	base, _ := url.Parse("http://api.example.com")
	j, err := NewCredentialJar(context.Background(), base, storage.NewMemoryStore(), logger.NewNop())
	require.NoError(t, err)

	j.SetCookies(base, []*http.Cookie{
		{Name: "a", Value: "1", Path: "/"},
		{Name: "b", Value: "2", Path: "/", MaxAge: 60},
		{Name: "c", Value: "3", Path: "/", Expires: time.Now().Add(-time.Hour)},
	})
	assert.Equal(t, 2, j.Len())

	j.SetCookies(base, []*http.Cookie{{Name: "a", Value: "", Path: "/", MaxAge: -1}})
	assert.Equal(t, 1, j.Len())
	_, ok := j.Value("a")
	assert.False(t, ok)
	v, ok := j.Value("b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestCredentialJar_ForeignHostNotPersisted(t *testing.T) {
	base, _ := url.Parse("http://api.example.com")
	other, _ := url.Parse("http://cdn.example.org")
	j, err := NewCredentialJar(context.Background(), base, storage.NewMemoryStore(), logger.NewNop())
	require.NoError(t, err)

	j.SetCookies(other, []*http.Cookie{{Name: "tracker", Value: "1"}})

	assert.Zero(t, j.Len())
}

func TestCredentialJar_Purge(t *testing.T) {
	store := storage.NewMemoryStore()
	base, _ := url.Parse("http://api.example.com")
	j, err := NewCredentialJar(context.Background(), base, store, logger.NewNop())
	require.NoError(t, err)
	j.SetCookies(base, []*http.Cookie{{Name: "laravel_session", Value: "s"}, {Name: "XSRF-TOKEN", Value: "t"}})

	require.NoError(t, j.Purge(context.Background()))

	assert.Empty(t, j.Cookies(base))
	assert.Zero(t, j.Len())
	_, err = store.Get(context.Background(), CookiesKey)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}
