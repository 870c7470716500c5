// Package commands defines the deskwire CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - connect <id>     Run a headless session against a remote peer
//   - peers            List, show, edit or forget stored peer options
//   - probe            Select the rendezvous host and print its endpoints
//   - fingerprint      Print the trust anchor fingerprint
//
// # Implementation
//
// The root command loads configuration, sets up logging and builds the
// dependency graph (option store, rendezvous client, handshake engine)
// before any subcommand runs, so handlers share one app.Wire.
package commands
