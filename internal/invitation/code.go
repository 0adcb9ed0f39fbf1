package invitation

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const codeBytes = 32

// GenerateCode returns a new random code and the digest stored in its place.
func GenerateCode() (code, hash string, err error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate invitation code: %w", err)
	}
	code = hex.EncodeToString(buf)
	return code, HashCode(code), nil
}

func HashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(code))))
	return hex.EncodeToString(sum[:])
}
