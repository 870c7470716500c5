// Package app wires application dependencies for the CLI.
//
// It builds the option store, rendezvous host selector, negotiation client,
// handshake engine and transport dialer from config.Config, and exposes
// them via the Wire struct. Wire.NewSession hands out session handles bound
// to that graph.
package app
