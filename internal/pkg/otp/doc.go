// Package otp derives and checks time-windowed one-time codes (TOTP, RFC 6238).
//
// The package is stateless: every call takes a Config value, so the window
// length, digit count and drift allowance are decided by the caller. Secrets
// are base32 strings as produced by GenerateSecret.
package otp
