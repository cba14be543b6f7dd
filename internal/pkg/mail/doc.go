// Package mail sends transactional email.
//
// Callers depend on the Mail interface; SMTP delivers for real and Log writes
// the message to the structured log for local development.
package mail
