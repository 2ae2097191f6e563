// Package shortcode produces random short codes and resolves them against
// existing ones.
package shortcode

import (
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of symbols a generated code is drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var ErrInvalidLength = errors.New("code length must be positive")

// Generate returns a code of exactly length symbols picked uniformly from
// Alphabet. The result is not checked for uniqueness.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	return gonanoid.Generate(Alphabet, length)
}
