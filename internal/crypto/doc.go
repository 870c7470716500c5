// Package crypto exposes the minimal primitives used by deskwire.
//
// Contents
//
//   - Attached-signature verification and signing (OpenSigned, Sign), with
//     the semantics of libsodium's crypto_sign_open
//   - Box key generation and sealing of the session key for a peer
//     (GenerateBoxKeyPair, SealSessionKey, OpenSessionKey)
//   - The counter-nonce secretbox cipher used on the session channel
//     (Nonce, Encrypt, Decrypt)
//   - Login credential hashing (Hash, PasswordHash, Credential)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Keys are fixed-size arrays so they can be passed straight to nacl. Callers
// should treat session keys as sensitive and Wipe them when a session ends.
package crypto
