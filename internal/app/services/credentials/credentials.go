// Package credentials hashes and verifies passwords with scrypt.
package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
	keyLength = 64
	saltBytes = 16
	separator = "."
)

// ErrMalformed is returned by Verify when the stored credential cannot be parsed.
var ErrMalformed = errors.New("credentials: malformed stored credential")

// Hash derives a credential for password as "hex(key).hex(salt)" using a
// fresh random salt.
func Hash(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := derive(password, salt)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key) + separator + hex.EncodeToString(salt), nil
}

// Verify reports whether password matches stored. A wrong password yields
// false with a nil error; only an unparseable credential returns an error.
func Verify(password, stored string) (bool, error) {
	hashHex, saltHex, ok := strings.Cut(stored, separator)
	if !ok || hashHex == "" || saltHex == "" {
		return false, ErrMalformed
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return false, ErrMalformed
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, ErrMalformed
	}
	got, err := derive(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func derive(password string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return key, nil
}
