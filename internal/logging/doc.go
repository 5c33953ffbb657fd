// Package logging builds the application's slog loggers. It provides a
// compact console handler for interactive use, a JSON handler for log
// shipping, typed attribute helpers, and component-scoped child loggers.
package logging
