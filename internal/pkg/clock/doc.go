// Package clock provides a tiny time abstraction.
//
// Code that derives time steps (TOTP counters, token expiry, attempt windows)
// depends on Clocker instead of calling time.Now() directly. Tests use
// FixedClocker to pin the instant and step it across 30-second boundaries.
package clock
