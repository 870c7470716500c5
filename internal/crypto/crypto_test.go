package crypto_test

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/sign"

	"deskwire/internal/crypto"
)

func TestNonce_LittleEndianZeroFilled(t *testing.T) {
	n := crypto.Nonce(0x0102)
	assert.Equal(t, byte(0x02), n[0])
	assert.Equal(t, byte(0x01), n[1])
	for i := 2; i < 24; i++ {
		assert.Zero(t, n[i], "byte %d", i)
	}
}

func TestEncryptDecrypt_CounterMustMatch(t *testing.T) {
	key, err := crypto.GenerateSessionKey()
	require.NoError(t, err)

	ct := crypto.Encrypt([]byte("frame"), 1, key)
	pt, err := crypto.Decrypt(ct, 1, key)
	require.NoError(t, err)
	assert.Equal(t, "frame", string(pt))

	_, err = crypto.Decrypt(ct, 2, key)
	assert.ErrorIs(t, err, crypto.ErrDecrypt)
}

func TestSealSessionKey_RoundTrip(t *testing.T) {
	clientPub, clientPriv, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	hostPub, hostPriv, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	key, err := crypto.GenerateSessionKey()
	require.NoError(t, err)

	sealed := crypto.SealSessionKey(key, hostPub, clientPriv)
	got, err := crypto.OpenSessionKey(sealed, clientPub, hostPriv)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = crypto.OpenSessionKey(sealed[1:], clientPub, hostPriv)
	assert.ErrorIs(t, err, crypto.ErrSealedKey)
}

func TestOpenSigned(t *testing.T) {
	pub, priv, err := sign.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signed := crypto.Sign([]byte("payload"), priv)
	msg, err := crypto.OpenSigned(signed, pub)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(msg))

	signed[len(signed)-1] ^= 1
	_, err = crypto.OpenSigned(signed, pub)
	assert.ErrorIs(t, err, crypto.ErrBadSignature)
}

func TestParseSigningKey_Default(t *testing.T) {
	k, err := crypto.ParseSigningKey(crypto.DefaultTrustAnchor)
	require.NoError(t, err)
	assert.Len(t, k[:], 32)

	_, err = crypto.ParseSigningKey("c2hvcnQ=")
	assert.Error(t, err)
}

func TestCredential_DependsOnChallenge(t *testing.T) {
	p := crypto.PasswordHash("secret", "abc")
	assert.Equal(t, crypto.Hash([]byte("secret"), []byte("abc")), p)

	c1 := crypto.Credential(p, "xyz")
	c2 := crypto.Credential(p, "xyz2")
	assert.Equal(t, crypto.Hash(p, []byte("xyz")), c1)
	assert.NotEqual(t, c1, c2)
}

func TestFingerprint_Grouped(t *testing.T) {
	fp := crypto.Fingerprint([]byte("host key"))
	require.Len(t, fp, 24)
	assert.Len(t, strings.Split(fp, ":"), 5)
	assert.Equal(t, fp, crypto.Fingerprint([]byte("host key")))
	assert.NotEqual(t, fp, crypto.Fingerprint([]byte("other key")))
}

func TestWipeKey(t *testing.T) {
	k, err := crypto.GenerateSessionKey()
	require.NoError(t, err)
	crypto.WipeKey(k)
	assert.Equal(t, [crypto.KeySize]byte{}, *k)
	crypto.WipeKey(nil)
}
