// Package logger provides structured logging for garagebook.
//
// This package wraps zap for structured logging:
//
//   - logger.go: configuration, level control and the package default
//   - zap.go: the zap-backed Logger implementation
//   - context.go: context-aware logging with request IDs
//   - redact.go: sensitive field redaction
//
// Credentials (passwords, CSRF tokens, session cookies) are replaced by a
// placeholder before any encoder sees them.
package logger
