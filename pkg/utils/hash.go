package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashString returns a short stable digest, used to keep usernames out of logs.
func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:8])
}
