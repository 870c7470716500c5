package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"deskwire/internal/domain"
)

const (
	sealedPrefix = "sealed:v1:"
	saltSetting  = "store-salt"
)

// SecretOptions are the option names sealed at rest.
var SecretOptions = []string{domain.OptPassword, domain.OptOSPassword}

// errWrongPassphrase is returned when a sealed value does not open.
var errWrongPassphrase = errors.New("wrong passphrase or corrupted option")

// KDFParams are the scrypt cost parameters.
type KDFParams struct {
	N, R, P int
}

// DefaultKDF is used for on-disk stores.
var DefaultKDF = KDFParams{N: 1 << 15, R: 8, P: 1}

// SealedStore wraps an OptionStore and encrypts SecretOptions with a key
// derived from a passphrase. The scrypt salt is kept as a setting of the
// wrapped store.
type SealedStore struct {
	domain.OptionStore
	aead cipher.AEAD
}

// NewSealedStore derives the sealing key, creating the salt on first use.
func NewSealedStore(inner domain.OptionStore, passphrase string, kdf KDFParams) (*SealedStore, error) {
	if passphrase == "" {
		return nil, errors.New("sealed store: empty passphrase")
	}
	salt, err := loadSalt(inner)
	if err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive store key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SealedStore{OptionStore: inner, aead: aead}, nil
}

func loadSalt(inner domain.OptionStore) ([]byte, error) {
	v, err := inner.Setting(saltSetting)
	if err != nil {
		return nil, err
	}
	if v != "" {
		return base64.StdEncoding.DecodeString(v)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := inner.SetSetting(saltSetting, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("persist store salt: %w", err)
	}
	return salt, nil
}

// seal binds the ciphertext to the option name.
func (s *SealedStore) seal(name, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(ct), nil
}

// open returns plaintext values unchanged.
func (s *SealedStore) open(name, value string) (string, error) {
	enc, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return value, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(enc)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", errWrongPassphrase
	}
	ns := s.aead.NonceSize()
	pt, err := s.aead.Open(nil, raw[:ns], raw[ns:], []byte(name))
	if err != nil {
		return "", errWrongPassphrase
	}
	return string(pt), nil
}

// LoadPeer opens sealed values. A value that does not open is left out, so
// the session behaves as if it was never stored.
func (s *SealedStore) LoadPeer(id string) (domain.Options, error) {
	opts, err := s.OptionStore.LoadPeer(id)
	if err != nil {
		return nil, err
	}
	for _, name := range SecretOptions {
		v, ok := opts[name]
		if !ok {
			continue
		}
		pt, err := s.open(name, v)
		if err != nil {
			delete(opts, name)
			continue
		}
		opts[name] = pt
	}
	return opts, nil
}

func (s *SealedStore) SavePeer(id string, opts domain.Options) error {
	out := opts.Clone()
	for _, name := range SecretOptions {
		v, ok := out[name]
		if !ok || strings.HasPrefix(v, sealedPrefix) {
			continue
		}
		sealed, err := s.seal(name, v)
		if err != nil {
			return err
		}
		out[name] = sealed
	}
	return s.OptionStore.SavePeer(id, out)
}

var _ domain.OptionStore = (*SealedStore)(nil)
