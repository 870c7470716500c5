package transport

import (
	"context"
	"sync"
)

// Pipe returns two connected in-memory streams. Closing either end makes
// reads on the other return ErrClosedByPeer once buffered frames drain.
func Pipe() (Stream, Stream) {
	ab := newPipeHalf()
	ba := newPipeHalf()
	return &pipeEnd{in: ba, out: ab}, &pipeEnd{in: ab, out: ba}
}

type pipeHalf struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func newPipeHalf() *pipeHalf {
	return &pipeHalf{frames: make(chan []byte, 256), done: make(chan struct{})}
}

func (h *pipeHalf) shut() { h.once.Do(func() { close(h.done) }) }

type pipeEnd struct {
	in, out *pipeHalf
}

func (p *pipeEnd) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case b := <-p.in.frames:
		return b, nil
	default:
	}
	select {
	case b := <-p.in.frames:
		return b, nil
	case <-p.in.done:
		select {
		case b := <-p.in.frames:
			return b, nil
		default:
		}
		return nil, ErrClosedByPeer
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) WriteFrame(ctx context.Context, frame []byte) error {
	select {
	case <-p.out.done:
		return ErrClosed
	case <-p.in.done:
		return ErrClosed
	default:
	}
	b := append([]byte(nil), frame...)
	select {
	case p.out.frames <- b:
		return nil
	case <-p.out.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.out.shut()
	p.in.shut()
	return nil
}
