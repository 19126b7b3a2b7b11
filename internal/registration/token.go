package registration

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateTokenContent returns a random alphanumeric string of exactly
// length characters. Uniqueness is not guaranteed here; the unique index on
// token content is the authority, and an insert conflict surfaces as a
// storage error rather than a silent overwrite.
func GenerateTokenContent(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", length)
	}

	content := make([]byte, length)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range content {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		content[i] = tokenAlphabet[n.Int64()]
	}
	return string(content), nil
}
