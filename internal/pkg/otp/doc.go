// Package otp generates and verifies time-based one-time passwords (RFC 6238)
// for the account two-factor flows.
//
// The parameters are fixed to what authenticator apps assume by default:
// HMAC-SHA1, 30 second steps and 6 digit codes. Secrets travel as Base32 text
// (see package base32). Time and randomness are injected through Config so
// that verification windows can be tested against a fixed clock.
//
// Typical enrollment and login:
//
//	engine := otp.NewTOTP(otp.Config{Issuer: "Shop"})
//	secret, err := engine.GenerateSecret(otp.DefaultSecretSize)
//	qr := engine.EnrollmentURL(secret, "alice@example.com", "")
//	ok := engine.Verify(secret, submitted, otp.DefaultTolerance)
package otp
