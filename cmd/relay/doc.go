// Package main runs a development rendezvous server, relay and emulated host
// in one process, so a deskwire client can be exercised without a real
// remote machine.
//
// Listeners
//
//	ws://<host>:<base+2>
//	    Rendezvous endpoint. Answers a PunchHoleRequest for --id with a
//	    RelayResponse naming the relay below and carrying the host key
//	    signed by the trust anchor.
//
//	ws://<host>:<base+3>
//	    Relay endpoint. Performs the host side of the key exchange, checks
//	    the login credential against --password and streams a video batch
//	    after a successful login.
//
// Behaviour
//
//   - Keys are generated at startup; the trust anchor is printed so clients
//     can be started with --key.
//   - Clients point --server at <host>:<base>; the default base is 21116.
//   - All state is held in memory and lost on process exit.
//   - Each HTTP request is logged with method, path, remote and duration.
package main
