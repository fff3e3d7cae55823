// Package shortcode generates the compact public identifiers assigned to
// saved items. Codes are drawn from a restricted alphabet that leaves out
// visually ambiguous characters (0/o, 1/l), so a code read off a phone
// screen can be typed back without guessing.
package shortcode

import (
	"crypto/rand"
	"fmt"
)

// DefaultAlphabet has 32 symbols: lowercase letters without l and o,
// plus the digits 2-9. At the default length of 7 that is a 32^7 (~2^35)
// code space.
const DefaultAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

// DefaultLength is the number of symbols per code.
const DefaultLength = 7

// Generator produces candidate short codes. It does not guarantee
// uniqueness; the item store enforces that with the unique index on the
// code column and an insert-with-retry loop. Generate is safe for
// concurrent use, the only shared state is the crypto/rand reader.
type Generator struct {
	alphabet string
	length   int
}

// NewGenerator creates a Generator for the given alphabet and length.
// Zero values fall back to the defaults.
func NewGenerator(alphabet string, length int) (*Generator, error) {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if length == 0 {
		length = DefaultLength
	}
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("alphabet must have at least 2 symbols, got %d", len(alphabet))
	}
	if len(alphabet) > 256 {
		return nil, fmt.Errorf("alphabet must have at most 256 symbols, got %d", len(alphabet))
	}
	if length < 1 {
		return nil, fmt.Errorf("code length must be positive, got %d", length)
	}
	seen := make(map[byte]bool, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		if seen[alphabet[i]] {
			return nil, fmt.Errorf("alphabet contains duplicate symbol %q", alphabet[i])
		}
		seen[alphabet[i]] = true
	}
	return &Generator{alphabet: alphabet, length: length}, nil
}

// Generate draws one candidate code.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	// Rejection sampling keeps the symbol distribution uniform when the
	// alphabet size does not divide 256.
	n := len(g.alphabet)
	limit := byte(256 - 256%n)
	out := make([]byte, 0, g.length)
	for len(out) < g.length {
		for _, b := range buf {
			if b >= limit && limit != 0 {
				continue
			}
			out = append(out, g.alphabet[int(b)%n])
			if len(out) == g.length {
				break
			}
		}
		if len(out) < g.length {
			if _, err := rand.Read(buf); err != nil {
				return "", fmt.Errorf("failed to read random bytes: %w", err)
			}
		}
	}
	return string(out), nil
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// Alphabet returns the configured alphabet.
func (g *Generator) Alphabet() string {
	return g.alphabet
}
