package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errMalformedArgon2 = errors.New("hash: malformed argon2id hash")

var b64 = base64.RawStdEncoding

type argon2Params struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
}

// Argon2id hashes into the PHC string format:
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt>$<key>.
// Verification uses the parameters embedded in the stored hash, so tuning the
// defaults does not invalidate existing credentials.
type Argon2id struct {
	params  argon2Params
	saltLen int
	keyLen  uint32
	pepper  string
	slots   chan struct{}
}

func NewArgon2id(pepper string) *Argon2id {
	return &Argon2id{
		params:  argon2Params{memory: 32 * 1024, time: 3, threads: 2},
		saltLen: 16,
		keyLen:  32,
		pepper:  pepper,
		// each derivation allocates params.memory KiB
		slots: make(chan struct{}, 4),
	}
}

func (a *Argon2id) derive(plaintext string, salt []byte, p argon2Params, keyLen uint32) []byte {
	a.slots <- struct{}{}
	defer func() { <-a.slots }()

	return argon2.IDKey([]byte(plaintext+a.pepper), salt, p.time, p.memory, p.threads, keyLen)
}

func (a *Argon2id) Hash(plaintext string) ([]byte, error) {
	salt := make([]byte, a.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("hash: salt: %w", err)
	}

	key := a.derive(plaintext, salt, a.params, a.keyLen)

	var sb strings.Builder
	fmt.Fprintf(&sb, "$argon2id$v=%d$m=%d,t=%d,p=%d$", argon2.Version, a.params.memory, a.params.time, a.params.threads)
	sb.WriteString(b64.EncodeToString(salt))
	sb.WriteByte('$')
	sb.WriteString(b64.EncodeToString(key))

	return []byte(sb.String()), nil
}

func (a *Argon2id) Verify(hashed, plaintext string) bool {
	if plaintext == "" {
		return false
	}

	p, salt, want, err := decodeArgon2id(hashed)
	if err != nil {
		return false
	}

	got := a.derive(plaintext, salt, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1
}

func decodeArgon2id(encoded string) (p argon2Params, salt, key []byte, err error) {
	// leading "$" yields an empty first field
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, errMalformedArgon2
	}

	var version int
	if _, err = fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedArgon2
	}
	if _, err = fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, errMalformedArgon2
	}
	if salt, err = b64.DecodeString(fields[4]); err != nil {
		return p, nil, nil, errMalformedArgon2
	}
	if key, err = b64.DecodeString(fields[5]); err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedArgon2
	}

	return p, salt, key, nil
}
