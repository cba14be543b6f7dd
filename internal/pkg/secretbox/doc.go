// Package secretbox seals small secrets before they are written to storage.
//
// Ciphertexts are AES-256-GCM and bound to a Scope (subject + purpose) through
// the additional authenticated data, so a value copied between subjects or
// purposes fails to open. Sealed values are base64 strings and are safe to
// compare for equality in conditional writes.
package secretbox
