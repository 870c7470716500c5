package crypto

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrDecrypt is returned when a frame fails authentication.
var ErrDecrypt = errors.New("crypto: frame authentication failed")

// Nonce writes counter little-endian into the first bytes of a 24-byte
// nonce; the rest stays zero.
func Nonce(counter uint64) *[24]byte {
	var n [24]byte
	binary.LittleEndian.PutUint64(n[:8], counter)
	return &n
}

// Encrypt seals plaintext under key with the nonce for counter.
func Encrypt(plaintext []byte, counter uint64, key *[32]byte) []byte {
	return secretbox.Seal(nil, plaintext, Nonce(counter), key)
}

// Decrypt opens a frame sealed with Encrypt.
func Decrypt(ciphertext []byte, counter uint64, key *[32]byte) ([]byte, error) {
	out, ok := secretbox.Open(nil, ciphertext, Nonce(counter), key)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}
