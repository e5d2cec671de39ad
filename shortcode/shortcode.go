// Package shortcode mints the opaque tokens that identify links.
package shortcode

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// DefaultEntropyBytes is the number of random bytes behind each code.
const DefaultEntropyBytes = 6

// Generator produces URL-safe random short codes.
type Generator struct {
	random       io.Reader
	entropyBytes int
}

// NewGenerator returns a Generator drawing entropyBytes from crypto/rand per
// code. Non-positive values fall back to DefaultEntropyBytes.
func NewGenerator(entropyBytes int) *Generator {
	return newGenerator(rand.Reader, entropyBytes)
}

func newGenerator(random io.Reader, entropyBytes int) *Generator {
	if entropyBytes <= 0 {
		entropyBytes = DefaultEntropyBytes
	}
	return &Generator{random: random, entropyBytes: entropyBytes}
}

// Generate returns a new code: entropyBytes random bytes, base64url encoded
// without padding.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.entropyBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EncodedLen reports the length of the codes this Generator produces.
func (g *Generator) EncodedLen() int {
	return base64.RawURLEncoding.EncodedLen(g.entropyBytes)
}
