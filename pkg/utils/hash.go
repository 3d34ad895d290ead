package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString computes the SHA-256 hash of a string as a hex string.
func HashString(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// ShortHash returns the first 8 hex characters of the SHA-256 hash,
// enough to disambiguate colliding filename slugs.
func ShortHash(content string) string {
	return HashString(content)[:8]
}
