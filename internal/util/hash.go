package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies one (raw content, declared type) pair. Identical
// bytes uploaded under a different declared type hash to a different value,
// since the declared type selects the adapter.
func Fingerprint(raw []byte, declaredType string) string {
	h := sha256.New()
	h.Write(raw)
	h.Write([]byte{0})
	h.Write([]byte(declaredType))
	return hex.EncodeToString(h.Sum(nil))
}
