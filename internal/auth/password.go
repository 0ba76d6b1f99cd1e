package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
	// MaxPasswordLength caps passwords at registration and login; longer
	// login attempts are rejected before hashing.
	MaxPasswordLength = 128

	// SaltSize is the length of the random per-credential salt in bytes.
	SaltSize = 16
	// HashSize is the derived key length in bytes (512 bits).
	HashSize = 64
	// DefaultIterations is the PBKDF2 iteration count.
	DefaultIterations = 350000
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password exceeds maximum length of %d characters", MaxPasswordLength)
)

// Hasher derives password hashes with PBKDF2-HMAC-SHA512.
// The zero value uses DefaultIterations.
type Hasher struct {
	Iterations int
}

// NewHasher returns a Hasher with the given iteration count, falling back
// to DefaultIterations for non-positive values.
func NewHasher(iterations int) Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return Hasher{Iterations: iterations}
}

func (h Hasher) iterations() int {
	if h.Iterations <= 0 {
		return DefaultIterations
	}
	return h.Iterations
}

// Hash generates a fresh random salt and derives the hash of password with it.
// Both values are returned base64url-encoded.
func (h Hasher) Hash(password string) (hash string, salt string, err error) {
	saltBytes := make([]byte, SaltSize)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	return Base64URLEncode(h.derive(password, saltBytes)), Base64URLEncode(saltBytes), nil
}

// HashWithSalt derives the hash of password with an existing encoded salt.
func (h Hasher) HashWithSalt(password, salt string) (string, error) {
	saltBytes, err := Base64URLDecode(salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	return Base64URLEncode(h.derive(password, saltBytes)), nil
}

// Verify recomputes the hash of password with salt and compares it to hash
// in constant time. Malformed inputs yield false.
func (h Hasher) Verify(password, hash, salt string) bool {
	saltBytes, err := Base64URLDecode(salt)
	if err != nil || len(saltBytes) == 0 {
		return false
	}
	expected, err := Base64URLDecode(hash)
	if err != nil || len(expected) == 0 {
		return false
	}
	actual := h.derive(password, saltBytes)
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func (h Hasher) derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, h.iterations(), HashSize, sha512.New)
}

// HashPassword hashes password with a new random salt and DefaultIterations.
func HashPassword(password string) (hash string, salt string, err error) {
	return Hasher{}.Hash(password)
}

// VerifyPassword checks password against a stored hash and salt.
func VerifyPassword(password, hash, salt string) bool {
	return Hasher{}.Verify(password, hash, salt)
}

// ValidatePassword enforces the password length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
