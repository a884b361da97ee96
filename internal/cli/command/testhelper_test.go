package command

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/yndnr/garagebook-go/internal/cli/connection"
	"github.com/yndnr/garagebook-go/internal/client/clienttest"
	"github.com/yndnr/garagebook-go/internal/storage"
)

// sharedStore survives the Close at the end of each run, so state carries
// over between invocations like the on-disk store does.
type sharedStore struct {
	storage.KV
}

func (sharedStore) Close() error { return nil }

type harness struct {
	t     *testing.T
	srv   *clienttest.Server
	store storage.KV
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return &harness{
		t:     t,
		srv:   clienttest.NewServer(t),
		store: sharedStore{storage.NewMemoryStore()},
	}
}

type result struct {
	out    string
	errOut string
	err    error
}

// run executes one CLI invocation against the fake server.
func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := App(
		WithIO(strings.NewReader(stdin), &out, &errOut),
		WithConnectionOptions(connection.WithStore(h.store)),
	)
	argv := append([]string{AppName, "--server", h.srv.URL}, args...)
	err := app.RunContext(context.Background(), argv)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func (h *harness) login() {
	h.t.Helper()
	res := h.run(clienttest.Password+"\n", "login", "--email", clienttest.Email, "--password-stdin")
	if res.err != nil {
		h.t.Fatalf("login: %v", res.err)
	}
}
