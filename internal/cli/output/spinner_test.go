package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_StartStop(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Signing in")

	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	out := buf.String()
	assert.Contains(t, out, "Signing in")
	assert.True(t, strings.HasSuffix(out, "\r\033[K"))
}

func TestSpinner_Success(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Loading")

	s.Start()
	s.Success("done")

	assert.True(t, strings.HasSuffix(buf.String(), "✓ done\n"))
}

func TestSpinner_Fail(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Loading")

	s.Start()
	s.Fail("boom")

	assert.True(t, strings.HasSuffix(buf.String(), "✗ boom\n"))
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "idle")

	s.Stop()
	s.Stop()

	assert.NotContains(t, buf.String(), "idle")
}
