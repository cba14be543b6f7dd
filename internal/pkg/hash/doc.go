// Package hash provides password hashers for the credential store.
//
// Only the encoded hash is stored. Bcrypt and Argon2id implement the same
// Hash interface so the algorithm is a configuration choice.
package hash
