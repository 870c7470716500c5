// Package session runs one remote-desktop session.
//
// A Session negotiates a path to the peer through the rendezvous server,
// secures the relay connection, then dispatches inbound messages until the
// session ends. Login, video acknowledgement, clipboard, cursor and misc
// control messages are handled here; the UI, decoder, audio and clipboard
// are collaborators supplied by the caller.
//
// UI actions (keyboard, mouse, option toggles) are converted to protocol
// messages and drained to the transport by an outbound queue.
package session
