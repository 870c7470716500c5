// Package transport provides the framed duplex channel a session runs on.
//
// A Stream moves whole frames over websockets, tcp (with the variable-length
// header codec) or an in-memory pipe. Conn layers the two message schemas on
// top of a Stream, encrypts session frames once a key is installed, and
// flushes queued writes on a fixed tick so bursts coalesce without
// reordering.
package transport
