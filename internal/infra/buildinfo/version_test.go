package buildinfo

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.True(t, strings.Contains(info.Platform, "/"))
}

func TestString(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	t.Cleanup(func() { Version = old })

	assert.True(t, strings.HasPrefix(String(), "v1.2.3 ("))
	assert.Equal(t, "garagebook-cli/v1.2.3", UserAgent())
}
