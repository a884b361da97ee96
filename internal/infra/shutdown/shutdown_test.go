package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestHandler_ReverseOrderOnce(t *testing.T) {
	h := NewHandler(time.Second)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		h.OnShutdown(func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, h.Shutdown())
	require.NoError(t, h.Shutdown())
	assert.Equal(t, []int{3, 2, 1}, order)

	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestHandler_CombinesErrors(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("flush metrics")
	errB := errors.New("close store")
	h.OnShutdown(func(context.Context) error { return errA })
	h.OnShutdown(func(context.Context) error { return nil })
	h.OnShutdown(func(context.Context) error { return errB })

	err := h.Shutdown()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestHandler_ContextCancelledBySignal(t *testing.T) {
	h := NewHandler(time.Second)
	ctx, stop := h.Context(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
