// Package logging builds the slog loggers used across the reorganizer and
// provides a small attribute facade so callers do not import log/slog
// directly. The console handler produces compact human-readable lines; the
// JSON handler is for machine consumption.
package logging
