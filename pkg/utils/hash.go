package utils

import (
	"crypto/sha256"
	"fmt"
)

func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// ShortHash returns a 12-character digest prefix, used for cache keys and
// sanitized identifiers.
func ShortHash(input string) string {
	return HashString(input)[:12]
}
