package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// MaxCodeDigits bounds numeric codes so 10^digits always fits an int64.
const MaxCodeDigits = 18

// GenerateNumericCode returns a uniformly random, zero-padded decimal code of
// exactly digits characters (e.g. "042913" for digits=6).
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > MaxCodeDigits {
		return "", fmt.Errorf("code length must be between 1 and %d, got %d", MaxCodeDigits, digits)
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// IsNumericCode reports whether s is exactly digits ASCII digits.
func IsNumericCode(s string, digits int) bool {
	if len(s) != digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
