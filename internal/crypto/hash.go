package crypto

import "crypto/sha256"

// Hash returns SHA-256 over the concatenation of parts.
func Hash(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// PasswordHash is the value cached between attempts: H(password, salt).
func PasswordHash(password, salt string) []byte {
	return Hash([]byte(password), []byte(salt))
}

// Credential is what a LoginRequest carries: H(passwordHash, challenge).
// It must be recomputed for every challenge.
func Credential(passwordHash []byte, challenge string) []byte {
	return Hash(passwordHash, []byte(challenge))
}
