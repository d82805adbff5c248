// Package hashutil digests bearer tokens so only the digest is stored.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TokenDigest returns the hex SHA-256 of the trimmed token.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
