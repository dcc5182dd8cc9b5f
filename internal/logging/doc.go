// Package logging provides slog-based structured logging with console and
// JSON handlers plus helpers for attaching job context to loggers.
package logging
