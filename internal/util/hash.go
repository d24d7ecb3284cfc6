package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex identifies an essay body in grading history without storing a
// second copy as a key.
func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}
