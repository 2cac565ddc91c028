// Package instrument wires OpenTelemetry tracing, metrics and logs, and
// installs the process-wide slog logger.
//
// Log records are JSON with "ts", "severity" and "file" keys, carry the
// request correlation id and service name, and have sensitive keys such as
// passwords, TOTP secrets and one-time codes replaced by "***".
package instrument
