// Package credentials hashes and verifies user passwords with bcrypt.
package credentials

import (
	"fmt"

	"warbler/internal/models"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when no cost is configured.
const DefaultCost = 12

// Hasher produces self-describing bcrypt hashes ($2a$<cost>$...).
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher for cost; zero selects DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost is the work factor new hashes are produced with.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of plaintext. Inputs beyond bcrypt's 72-byte
// limit are rejected rather than silently truncated.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > validation.MaxPasswordLength {
		return "", models.NewValidationError(fmt.Sprintf("password must not exceed %d bytes", validation.MaxPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes never match.
func (h *Hasher) Verify(hash, plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

// NeedsRehash is true when hash was produced with a different cost, or is
// not a bcrypt hash at all.
func (h *Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != h.cost
}
