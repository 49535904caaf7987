package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash indicates a stored hash is not in the expected encoded format.
var ErrInvalidHash = errors.New("invalid password hash encoding")

// Argon2Params tunes the argon2id key derivation.
type Argon2Params struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultArgon2Params are used for production hashing.
var DefaultArgon2Params = Argon2Params{
	Time:       1,
	Memory:     64 * 1024,
	Threads:    4,
	KeyLength:  32,
	SaltLength: 16,
}

// PasswordHasher hashes passwords with argon2id after appending an application-wide pepper.
type PasswordHasher struct {
	pepper string
	params Argon2Params
}

// NewPasswordHasher returns a hasher with DefaultArgon2Params.
func NewPasswordHasher(pepper string) *PasswordHasher {
	return NewPasswordHasherWithParams(pepper, DefaultArgon2Params)
}

// NewPasswordHasherWithParams returns a hasher with custom cost parameters.
func NewPasswordHasherWithParams(pepper string, params Argon2Params) *PasswordHasher {
	return &PasswordHasher{pepper: pepper, params: params}
}

// Hash derives an encoded argon2id hash of password+pepper with a random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password+h.pepper), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Cost parameters are read from the
// encoded hash so older hashes keep verifying after the defaults change.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHash
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(password+h.pepper), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
