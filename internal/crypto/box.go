package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// KeySize is the size of box keys and the session key.
const KeySize = 32

// ErrSealedKey is returned when a sealed session key cannot be opened.
var ErrSealedKey = errors.New("crypto: cannot open sealed session key")

// zeroNonce is used for sealing the session key. Each handshake uses a fresh
// box key pair, so the (key pair, nonce) combination never repeats.
var zeroNonce [24]byte

// GenerateBoxKeyPair returns a fresh Curve25519 box key pair.
func GenerateBoxKeyPair() (pub, priv *[32]byte, err error) {
	return box.GenerateKey(rand.Reader)
}

// GenerateSessionKey returns a random symmetric key.
func GenerateSessionKey() (*[32]byte, error) {
	var k [32]byte
	if _, err := rand.Read(k[:]); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return &k, nil
}

// SealSessionKey encrypts key for theirPub using myPriv.
func SealSessionKey(key, theirPub, myPriv *[32]byte) []byte {
	return box.Seal(nil, key[:], &zeroNonce, theirPub, myPriv)
}

// OpenSessionKey reverses SealSessionKey on the receiving side.
func OpenSessionKey(sealed []byte, theirPub, myPriv *[32]byte) (*[32]byte, error) {
	raw, ok := box.Open(nil, sealed, &zeroNonce, theirPub, myPriv)
	if !ok || len(raw) != KeySize {
		return nil, ErrSealedKey
	}
	var k [32]byte
	copy(k[:], raw)
	Wipe(raw)
	return &k, nil
}
