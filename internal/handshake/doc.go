// Package handshake derives the symmetric session key with a host.
//
// The rendezvous server vouches for the host's signing key; the host then
// proves its box key with a SignedId message. Any verification failure
// downgrades the session to plaintext instead of failing it: the client
// sends an empty PublicKey so a host waiting for one can proceed.
package handshake
