package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short stable digest of content, used to tell whether a
// classified document body changed between runs.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}
