// Package logger builds the process slog logger for respkv.
//
// Loggers from New share one level variable, so SetLevel also applies to
// loggers derived with With before the change. Stored values are user
// data and are redacted by attribute key, so a debug log line never leaks
// a value a client wrote.
package logger
