// Package logger builds the application's slog.Logger: text output outside
// production, JSON in production, with the environment attached to every
// record.
package logger
