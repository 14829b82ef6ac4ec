// Package logger provides the structured key-value logging used across
// lockguard components.
package logger

// Logger is the logging interface injected into lockguard components.
type Logger interface {
	// Debugw logs a debug-level message with optional structured context.
	Debugw(msg string, keysAndValues ...any)

	// Infow logs an info-level message with optional structured context.
	Infow(msg string, keysAndValues ...any)

	// Warnw logs a warning-level message with optional structured context.
	Warnw(msg string, keysAndValues ...any)

	// Errorw logs an error-level message with optional structured context.
	Errorw(msg string, keysAndValues ...any)

	// With returns a new logger with additional persistent key-value context.
	With(keysAndValues ...any) Logger

	// WithComponent adds a component label (e.g., "lock", "audit") to
	// categorize log output.
	WithComponent(name string) Logger
}
