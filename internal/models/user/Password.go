package user

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Hasher turns plaintext passwords into their stored form.
type Hasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext hashes to hashed.
	Verify(hashed, plaintext string) bool
	// Deterministic reports whether Hash always returns the same value for the same input.
	Deterministic() bool
}

const (
	pbkdf2KeyLen = 32
	// bcrypt only reads the first 72 bytes of its input.
	bcryptMaxLen = 72
)

// ErrPasswordTooLong is returned by a Hasher that cannot hash the whole plaintext.
var ErrPasswordTooLong = errors.New("password is too long")

// PBKDF2Hasher derives a PBKDF2-SHA256 key with a fixed, configured pepper as salt.
// The same plaintext always yields the same hash.
type PBKDF2Hasher struct {
	pepper     []byte
	iterations int
}

// NewPBKDF2Hasher creates a PBKDF2Hasher. iterations must be positive.
func NewPBKDF2Hasher(pepper string, iterations int) *PBKDF2Hasher {
	return &PBKDF2Hasher{pepper: []byte(pepper), iterations: iterations}
}

func (h *PBKDF2Hasher) Hash(plaintext string) (string, error) {
	key := pbkdf2.Key([]byte(plaintext), h.pepper, h.iterations, pbkdf2KeyLen, sha256.New)
	return hex.EncodeToString(key), nil
}

func (h *PBKDF2Hasher) Verify(hashed, plaintext string) bool {
	candidate, _ := h.Hash(plaintext)
	return subtle.ConstantTimeCompare([]byte(hashed), []byte(candidate)) == 1
}

func (h *PBKDF2Hasher) Deterministic() bool { return true }

// BcryptHasher hashes with bcrypt. Hashes are salted per call.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher; a cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > bcryptMaxLen {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(hashed, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

func (h *BcryptHasher) Deterministic() bool { return false }
