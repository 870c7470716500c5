package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// tcpStream frames a net.Conn with the header codec.
type tcpStream struct {
	conn   net.Conn
	r      *bufio.Reader
	max    int
	wmu    sync.Mutex
	closed sync.Once
}

// NewTCPStream wraps conn. Frames above maxFrame bytes are rejected.
func NewTCPStream(conn net.Conn, maxFrame int) Stream {
	return &tcpStream{conn: conn, r: bufio.NewReaderSize(conn, 64<<10), max: maxFrame}
}

// DialTCP connects to addr ("host:port").
func DialTCP(ctx context.Context, addr string, maxFrame int) (Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCPStream(conn, maxFrame), nil
}

func (s *tcpStream) ReadFrame(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.SetReadDeadline(time.Now()) })
	defer stop()
	b, err := ReadFrame(s.r, s.max)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, mapNetErr(err)
	}
	return b, nil
}

func (s *tcpStream) WriteFrame(ctx context.Context, frame []byte) error {
	out, err := EncodeFrame(frame)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(dl)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := s.conn.Write(out); err != nil {
		return mapNetErr(err)
	}
	return nil
}

func (s *tcpStream) Close() error {
	var err error
	s.closed.Do(func() { err = s.conn.Close() })
	return err
}

func mapNetErr(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrClosedByPeer
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrTimeout
	}
	return err
}
