package secretbox

import (
	"bytes"
	"errors"
	"testing"
)

func newTestSealer(t *testing.T) *AESGCM {
	t.Helper()

	s, err := NewAESGCM(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}
	return s
}

func TestSealOpen(t *testing.T) {
	// Arrange
	s := newTestSealer(t)
	scope := Scope{Subject: "u1", Purpose: PurposeResetSecret}

	// Act
	sealed, err := s.Seal("GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", scope)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	plain, err := s.Open(sealed, scope)

	// Assert
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if plain != "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ" {
		t.Fatalf("Open() = %q", plain)
	}
}

func TestSeal_NonceDiffers(t *testing.T) {
	s := newTestSealer(t)
	scope := Scope{Subject: "u1", Purpose: PurposeResetSecret}

	a, _ := s.Seal("secret", scope)
	b, _ := s.Seal("secret", scope)
	if a == b {
		t.Fatal("sealing twice produced the same ciphertext")
	}
}

func TestOpen_Failures(t *testing.T) {
	s := newTestSealer(t)
	scope := Scope{Subject: "u1", Purpose: PurposeResetSecret}
	sealed, err := s.Seal("secret", scope)
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewAESGCM(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		sealer  *AESGCM
		sealed  string
		scope   Scope
		wantErr error
	}{
		{name: "other subject", sealer: s, sealed: sealed, scope: Scope{Subject: "u2", Purpose: PurposeResetSecret}, wantErr: ErrOpen},
		{name: "other purpose", sealer: s, sealed: sealed, scope: Scope{Subject: "u1", Purpose: "other"}, wantErr: ErrOpen},
		{name: "other key", sealer: other, sealed: sealed, scope: scope, wantErr: ErrOpen},
		{name: "not base64", sealer: s, sealed: "%%%", scope: scope, wantErr: ErrMalformed},
		{name: "too short", sealer: s, sealed: "AAE=", scope: scope, wantErr: ErrMalformed},
		{name: "empty", sealer: s, sealed: "", scope: scope, wantErr: ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.sealer.Open(tt.sealed, tt.scope); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewAESGCM_KeyLength(t *testing.T) {
	if _, err := NewAESGCM([]byte("short")); !errors.Is(err, ErrKeyLength) {
		t.Fatalf("error = %v, want ErrKeyLength", err)
	}
}
