package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Digits is the length of generated codes.
const Digits = 6

var limit = big.NewInt(1_000_000)

// NewCode returns a uniformly random zero-padded 6-digit code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}
