package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns a display fingerprint of a public key: the first 10
// bytes of its SHA-256 as colon-separated hex pairs grouped in twos.
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	hx := hex.EncodeToString(sum[:10])
	groups := make([]string, 0, len(hx)/4)
	for i := 0; i < len(hx); i += 4 {
		groups = append(groups, hx[i:i+4])
	}
	return strings.Join(groups, ":")
}
