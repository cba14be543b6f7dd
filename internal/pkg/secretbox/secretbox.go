package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Purpose identifies what a sealed value is used for.
type Purpose string

// PurposeResetSecret scopes sealing to password-reset TOTP secrets.
const PurposeResetSecret Purpose = "password_reset_secret"

// Scope binds a ciphertext to its owner.
type Scope struct {
	Subject string
	Purpose Purpose
}

// Sealer seals and opens string secrets.
type Sealer interface {
	Seal(plaintext string, scope Scope) (string, error)
	Open(sealed string, scope Scope) (string, error)
}

var (
	// ErrKeyLength indicates the key is not 32 bytes.
	ErrKeyLength = errors.New("secretbox: key must be 32 bytes")
	// ErrEmpty indicates an empty plaintext or ciphertext.
	ErrEmpty = errors.New("secretbox: empty input")
	// ErrMalformed indicates the sealed value cannot be parsed.
	ErrMalformed = errors.New("secretbox: malformed sealed value")
	// ErrOpen indicates authentication failed: wrong key, wrong scope or tampering.
	ErrOpen = errors.New("secretbox: open failed")
)

// Layout after base64 decoding: uint16 version | 12-byte nonce | ciphertext+tag.
const (
	version   uint16 = 1
	nonceSize        = 12
	keySize          = 32
	headerLen        = 2 + nonceSize
)

// AESGCM implements Sealer with a single static key.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM builds a sealer from a 32-byte key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d", ErrKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: gcm init: %w", err)
	}

	return &AESGCM{aead: aead}, nil
}

// Seal encrypts plaintext for scope and returns base64 text.
func (s *AESGCM) Seal(plaintext string, scope Scope) (string, error) {
	if plaintext == "" {
		return "", ErrEmpty
	}

	out := make([]byte, headerLen, headerLen+len(plaintext)+s.aead.Overhead())
	binary.BigEndian.PutUint16(out[:2], version)
	if _, err := io.ReadFull(rand.Reader, out[2:headerLen]); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}

	out = s.aead.Seal(out, out[2:headerLen], []byte(plaintext), scope.aad())

	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal with the same scope.
func (s *AESGCM) Open(sealed string, scope Scope) (string, error) {
	if sealed == "" {
		return "", ErrEmpty
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) <= headerLen {
		return "", ErrMalformed
	}
	if binary.BigEndian.Uint16(raw[:2]) != version {
		return "", ErrMalformed
	}

	plain, err := s.aead.Open(nil, raw[2:headerLen], raw[headerLen:], scope.aad())
	if err != nil {
		return "", ErrOpen
	}

	return string(plain), nil
}

// aad hashes a labelled canonical form so the AAD has fixed length and no separator ambiguity.
func (s Scope) aad() []byte {
	sum := sha256.Sum256(fmt.Appendf(nil, "subject=%s\npurpose=%s\n", s.Subject, s.Purpose))
	return sum[:]
}
