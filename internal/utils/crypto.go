// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateWalletAddress produces a random 20-byte address in the 0x-hex form
// the token ledger keys accounts by.
func GenerateWalletAddress() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%s", hex.EncodeToString(b)), nil
}
