package transport

import (
	"context"
	"errors"
)

// Stream is a bidirectional frame channel. ReadFrame is called from a single
// goroutine; WriteFrame may be called concurrently with it.
type Stream interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, frame []byte) error
	Close() error
}

var (
	// ErrClosed is returned by operations on a Conn after Close.
	ErrClosed = errors.New("transport: closed")
	// ErrTimeout is returned when no frame arrives within the read timeout.
	ErrTimeout = errors.New("transport: timeout")
	// ErrClosedByPeer marks a graceful close initiated by the remote side.
	ErrClosedByPeer = errors.New("transport: closed by peer")
	// ErrKeyInstalled is returned when a session key is installed twice.
	ErrKeyInstalled = errors.New("transport: session key already installed")
	// ErrMalformed wraps a frame that does not decode. The stream is intact.
	ErrMalformed = errors.New("transport: malformed frame")
	// ErrFrameTooLarge is returned by the tcp codec for oversized frames.
	ErrFrameTooLarge = errors.New("transport: frame too large")
)
