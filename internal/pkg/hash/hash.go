package hash

import "errors"

// ErrPasswordTooLong is returned when the input exceeds what the algorithm can hash without truncation.
var ErrPasswordTooLong = errors.New("hash: password too long")

// Hash hashes plaintext and verifies plaintext against a stored hash.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}
