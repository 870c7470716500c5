// Package pb holds the two wire schemas spoken with rendezvous servers and
// hosts: the negotiation schema (RendezvousMessage) and the session schema
// (Message).
//
// Messages are proto3 and encoded by hand with protowire so that field
// numbers match the deployed hosts exactly. Each top-level envelope is a
// closed union: the payload interfaces are sealed by an unexported method and
// consumers type-switch over the concrete kinds.
package pb
