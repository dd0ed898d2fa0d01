package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Session and reset tokens are opaque random strings; all associated
// state lives server-side in Redis.
const tokenBytes = 32

// tokenFormatRegex validates a token before hitting the session store.
var tokenFormatRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// NewToken generates a cryptographically random opaque token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidTokenFormat reports whether a string looks like a token we issued.
// Used to reject garbage before a Redis lookup.
func ValidTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}
