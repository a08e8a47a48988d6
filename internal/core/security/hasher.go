// Package security holds the credential primitives of the identity core:
// the password hasher and the signed-token codec.
package security

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SchemeBcrypt is the only hashing scheme currently supported.
const SchemeBcrypt = "bcrypt"

// bcryptMaxInput is the longest input bcrypt accepts, in bytes.
const bcryptMaxInput = 72

// Hasher hashes passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher validates the scheme and cost. A cost of zero selects
// bcrypt.DefaultCost.
func NewHasher(scheme string, cost int) (*Hasher, error) {
	if scheme != SchemeBcrypt {
		return nil, fmt.Errorf("unsupported hashing scheme %q", scheme)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns a salted bcrypt digest. It accepts any string, whatever its
// length in bytes.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(bcryptInput(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests never match.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), bcryptInput(plaintext)) == nil
}

// bcryptInput passes short passwords through unchanged, so digests stay
// interoperable with plain bcrypt. Longer ones are reduced to the base64 of
// their SHA-256 (44 bytes) instead of being rejected or truncated.
func bcryptInput(plaintext string) []byte {
	if len(plaintext) <= bcryptMaxInput {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
