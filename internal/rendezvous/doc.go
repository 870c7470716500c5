// Package rendezvous negotiates how a session reaches its peer.
//
// Endpoints derives rendezvous and relay URIs from host strings using the
// fixed port offsets hosts expect, Selector picks a rendezvous host (probing
// the configured list once per process), and Client runs the one-shot
// punch-hole exchange that yields a domain.ConnectionDescriptor.
package rendezvous
