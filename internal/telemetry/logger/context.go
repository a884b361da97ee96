package logger

import "context"

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	commandKey
)

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID tags ctx with the X-Request-ID of the exchange in flight.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID tag, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithCommand tags ctx with the CLI command that started the work,
// e.g. "appointment create".
func WithCommand(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, commandKey, name)
}

// CommandFromContext returns the command tag, or "".
func CommandFromContext(ctx context.Context) string {
	name, _ := ctx.Value(commandKey).(string)
	return name
}

// contextFields lists the tags carried by ctx as key/value pairs.
func contextFields(ctx context.Context) []any {
	var fields []any
	if name := CommandFromContext(ctx); name != "" {
		fields = append(fields, "command", name)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, "request_id", id)
	}
	return fields
}

// L returns the logger from ctx with its tags attached.
func L(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}
