package hash

import "golang.org/x/crypto/bcrypt"

// bcrypt ignores input past this many bytes.
const bcryptMaxInput = 72

// Bcrypt appends a configured pepper to the plaintext before hashing and
// verifying. The pepper counts toward bcrypt's 72-byte input limit.
type Bcrypt struct {
	cost   int
	pepper []byte
}

// NewBcrypt falls back to bcrypt.DefaultCost when cost is out of range.
func NewBcrypt(cost int, pepper string) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost, pepper: []byte(pepper)}
}

func (h *Bcrypt) peppered(plaintext string) []byte {
	return append([]byte(plaintext), h.pepper...)
}

// Hash returns ErrPasswordTooLong instead of letting bcrypt truncate.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	input := h.peppered(plaintext)
	if len(input) > bcryptMaxInput {
		return nil, ErrPasswordTooLong
	}
	return bcrypt.GenerateFromPassword(input, h.cost)
}

func (h *Bcrypt) Verify(hashed, plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), h.peppered(plaintext))
	return err == nil
}
