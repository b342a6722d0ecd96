// ABOUTME: Edit code generation for households
// ABOUTME: Codes are six decimal digits in the range 100000-999999

package household

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	editCodeMin  = 100000
	editCodeSpan = 900000
)

// GenerateEditCode returns a random 6-digit edit code.
func GenerateEditCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(editCodeSpan))
	if err != nil {
		return "", fmt.Errorf("generating edit code: %w", err)
	}
	return fmt.Sprintf("%d", editCodeMin+n.Int64()), nil
}
