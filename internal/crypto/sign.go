package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/sign"
)

// DefaultTrustAnchor is the public rendezvous server's signing key.
const DefaultTrustAnchor = "OeVuKk5nlHiXp+APNn0Y3pC1Iwpwn44JGqrQCsWqmBw="

// ErrBadSignature is returned when a signed blob does not verify.
var ErrBadSignature = errors.New("crypto: bad signature")

// ParseSigningKey decodes a base64 ed25519 public key.
func ParseSigningKey(s string) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	return SigningKey(raw)
}

// SigningKey copies raw into a key array. raw must be 32 bytes.
func SigningKey(raw []byte) (*[32]byte, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("signing key: want 32 bytes, got %d", len(raw))
	}
	var k [32]byte
	copy(k[:], raw)
	return &k, nil
}

// OpenSigned verifies a signature||message blob and returns the message.
func OpenSigned(signed []byte, pub *[32]byte) ([]byte, error) {
	msg, ok := sign.Open(nil, signed, pub)
	if !ok {
		return nil, ErrBadSignature
	}
	return msg, nil
}

// Sign produces a signature||message blob.
func Sign(msg []byte, priv *[64]byte) []byte {
	return sign.Sign(nil, msg, priv)
}
