// Package hoststub emulates the far side of a session: a rendezvous server
// and a relay with a remote host behind it. It speaks both wire schemas and
// records what clients send, for tests and local development.
//
// The rendezvous side answers each punch-hole request with either a
// configured refusal or a RelayResponse carrying a key signed by the stub's
// own trust anchor. The relay side runs the host half of the handshake,
// issues a login challenge, checks the credential and streams a video batch.
package hoststub
