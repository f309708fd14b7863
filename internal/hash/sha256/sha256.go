// Package sha256 provides SHA-256 content fingerprinting.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Hasher implements monitor.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Normalize collapses whitespace and case so that trivially reformatted
// copies of the same article fingerprint identically.
func Normalize(text string) []byte {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return []byte(b.String())
}
