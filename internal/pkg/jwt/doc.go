// Package jwt issues and verifies the HS512 access tokens handed out after
// password login and, for accounts with two-factor enabled, after the TOTP step.
//
// The amr claim records which factors were presented, so handlers can tell a
// password-only session from one that passed the second factor.
package jwt
