package hash

import (
	"errors"
	"strings"
	"testing"
)

func TestHashers(t *testing.T) {
	hashers := map[string]Hash{
		"bcrypt":   NewBcrypt(4, "pepper"),
		"argon2id": NewArgon2id("pepper"),
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hashed, err := h.Hash("n3wPassw0rd")
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if !h.Verify(string(hashed), "n3wPassw0rd") {
				t.Fatal("Verify() = false for the original password")
			}
			if h.Verify(string(hashed), "wrong-password") {
				t.Fatal("Verify() = true for a different password")
			}
		})
	}
}

func TestBcrypt_TooLong(t *testing.T) {
	h := NewBcrypt(4, "")

	if _, err := h.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash() error = %v, want ErrPasswordTooLong", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("Hash(72 bytes) error = %v", err)
	}
}

func TestArgon2id_VerifyRejectsMalformed(t *testing.T) {
	h := NewArgon2id("")

	for _, hashed := range []string{
		"",
		"plain-text",
		"$2a$10$abcdefghijklmnopqrstuv",
		"$argon2id$v=18$m=32768,t=3,p=2$c2FsdA$a2V5",
		"$argon2id$v=19$m=32768,t=3,p=2$c2FsdA$",
	} {
		if h.Verify(hashed, "n3wPassw0rd") {
			t.Fatalf("Verify(%q) = true", hashed)
		}
	}
}
