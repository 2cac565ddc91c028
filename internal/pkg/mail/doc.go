// Package mail sends account security notifications.
//
// Use cases depend on the Mail interface; SMTP delivers in production and Log
// writes the message summary to slog when no relay is configured.
package mail
