package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewFromCore(core), logs
}

func TestRedact_SensitiveKeys(t *testing.T) {
	l, logs := observed()

	l.Info("login",
		"email", "ada@example.com",
		"password", "hunter2",
		"xsrf_token", "abc%3D",
		"Cookie", "laravel_session=xyz",
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "ada@example.com", fields["email"])
	assert.Equal(t, redactedValue, fields["password"])
	assert.Equal(t, redactedValue, fields["xsrf_token"])
	assert.Equal(t, redactedValue, fields["Cookie"])
}

func TestRedact_WithFields(t *testing.T) {
	l, logs := observed()

	l.With("session_id", "s3cr3t").Info("restored")

	assert.Equal(t, redactedValue, logs.All()[0].ContextMap()["session_id"])
}

func TestRedact_EmptyValueKept(t *testing.T) {
	l, logs := observed()

	l.Info("no token yet", "token", "")

	assert.Equal(t, "", logs.All()[0].ContextMap()["token"])
}

func TestRedact_NonStringValue(t *testing.T) {
	l, logs := observed()

	l.Info("count", "token_refreshes", 3, "status", 419)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redactedValue, fields["token_refreshes"])
	assert.EqualValues(t, 419, fields["status"])
}

func TestRedactString(t *testing.T) {
	assert.Equal(t, "eyJ...XYZ", RedactString("eyJhbGciOiJIUzI1NiXYZ"))
	assert.Equal(t, "***", RedactString("short"))
	assert.Equal(t, "", RedactString(""))
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"password", "X-XSRF-TOKEN", "csrf", "laravel_session", "Authorization"} {
		assert.True(t, IsSensitiveKey(k), k)
	}
	for _, k := range []string{"email", "path", "status"} {
		assert.False(t, IsSensitiveKey(k), k)
	}
}
