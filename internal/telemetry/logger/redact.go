package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"xsrf",
	"csrf",
	"cookie",
	"session",
	"authorization",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactCore rewrites sensitive fields before delegating to the wrapped core.
type redactCore struct {
	zapcore.Core
}

func newRedactCore(core zapcore.Core) zapcore.Core {
	return &redactCore{Core: core}
}

func (c *redactCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if !IsSensitiveKey(f.Key) || isEmptyString(f) {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		out[i] = zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: redactedValue}
	}
	if out == nil {
		return fields
	}
	return out
}

func isEmptyString(f zapcore.Field) bool {
	return f.Type == zapcore.StringType && f.String == ""
}

// maskValue partially masks a value: first 3 chars + "..." + last 3 chars.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactString masks a credential so it can be shown in diagnostics
// without leaking it.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	return maskValue(value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
