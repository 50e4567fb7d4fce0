package dnsverify

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
)

// TokenPrefix marks TXT records issued by the platform so operators can tell
// them apart from other records on the same name.
const TokenPrefix = "storefront-domain-verification="

const tokenBytes = 16

// TokenPattern matches tokens produced by GenerateToken.
var TokenPattern = regexp.MustCompile(`^storefront-domain-verification=[0-9a-f]{32}$`)

// GenerateToken returns a new verification token carrying 128 random bits.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return TokenPrefix + hex.EncodeToString(b), nil
}

// IsToken reports whether s has the shape of a platform token.
func IsToken(s string) bool {
	return TokenPattern.MatchString(s)
}
