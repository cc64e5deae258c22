// utils/hash.go - content hashing for generation caching
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeText collapses whitespace runs to single spaces and trims, so
// re-uploads of the same content hash identically regardless of formatting.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContentHash returns the hex-encoded SHA-256 of s.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
