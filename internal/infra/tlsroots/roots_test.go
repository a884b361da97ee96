package tlsroots

import (
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverCAPEM(t *testing.T, ts *httptest.Server) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ts.Certificate().Raw})
}

func newTLSServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestAddCertPEM(t *testing.T) {
	ts := newTLSServer(t)
	pool := NewEmptyPool()

	require.NoError(t, pool.AddCertPEM(serverCAPEM(t, ts)))
	assert.Equal(t, 1, pool.Added())

	assert.ErrorIs(t, pool.AddCertPEM([]byte("not pem")), ErrNoCertsFound)
	assert.ErrorIs(t, pool.AddCertPEM(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1}})), ErrNoCertsFound)

	err := pool.AddCertPEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("junk")}))
	assert.Error(t, err)
}

func TestAddCertDir(t *testing.T) {
	ts := newTLSServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.crt"), serverCAPEM(t, ts), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pem"), []byte("nope"), 0600))

	pool := NewEmptyPool()
	require.NoError(t, pool.AddCertDir(dir))
	assert.Equal(t, 1, pool.Added())

	assert.ErrorIs(t, NewEmptyPool().AddCertDir(t.TempDir()), ErrNoCertsFound)
	assert.Error(t, NewEmptyPool().AddCertDir(filepath.Join(dir, "missing")))
}

func TestClientTLS_TrustsPrivateCA(t *testing.T) {
	ts := newTLSServer(t)
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, serverCAPEM(t, ts), 0600))

	tc, err := ClientTLS(path)
	require.NoError(t, err)
	require.NotNil(t, tc)

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tc}}
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestClientTLS_EmptyAndMissing(t *testing.T) {
	tc, err := ClientTLS("")
	require.NoError(t, err)
	assert.Nil(t, tc)

	_, err = ClientTLS(filepath.Join(t.TempDir(), "absent.pem"))
	assert.Error(t, err)
}

func TestTLSConfig(t *testing.T) {
	tc := NewPool().TLSConfig()
	assert.NotNil(t, tc.RootCAs)
	assert.EqualValues(t, 0x0303, tc.MinVersion)
}
