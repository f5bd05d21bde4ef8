// Package password implements the salted credential hashing scheme used for
// stored user secrets. The output is self-describing: the hex-encoded random
// salt is prefixed to the hex-encoded PBKDF2 digest, so verification needs no
// side channel.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength    = 8 // bytes of entropy per hash
	saltHexLength = saltLength * 2
	iterations    = 10_000
	keyLength     = 32
)

func derive(plaintext string, salt []byte) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(plaintext), salt, iterations, keyLength, sha256.New))
}

// Hash salts and hashes a plaintext credential. Every call draws a fresh
// random salt, so hashing the same input twice yields different strings.
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(salt) + derive(plaintext, salt), nil
}

// Verify reports whether plaintext matches a stored hash produced by Hash.
// The comparison is constant-time.
func Verify(plaintext, stored string) bool {
	if len(stored) <= saltHexLength {
		return false
	}
	salt, err := hex.DecodeString(stored[:saltHexLength])
	if err != nil {
		return false
	}
	digest := derive(plaintext, salt)
	return subtle.ConstantTimeCompare([]byte(stored[saltHexLength:]), []byte(digest)) == 1
}
