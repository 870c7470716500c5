package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"nhooyr.io/websocket"
)

// wsStream carries one frame per binary websocket message.
type wsStream struct {
	conn *websocket.Conn
}

// NewWebsocketStream wraps an established websocket. readLimit bounds the
// size of one inbound message.
func NewWebsocketStream(conn *websocket.Conn, readLimit int64) Stream {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	return &wsStream{conn: conn}
}

// DialWebsocket opens a ws:// or wss:// connection.
func DialWebsocket(ctx context.Context, uri string, readLimit int64) (Stream, error) {
	conn, _, err := websocket.Dial(ctx, uri, nil)
	if err != nil {
		return nil, err
	}
	return NewWebsocketStream(conn, readLimit), nil
}

// ReadFrame returns the next binary message. Text messages are skipped.
// Cancelling ctx tears down the websocket.
func (s *wsStream) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		typ, b, err := s.conn.Read(ctx)
		if err != nil {
			return nil, mapWSErr(err)
		}
		if typ == websocket.MessageBinary {
			return b, nil
		}
	}
}

func (s *wsStream) WriteFrame(ctx context.Context, frame []byte) error {
	if err := s.conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
		return mapWSErr(err)
	}
	return nil
}

func (s *wsStream) Close() error {
	err := s.conn.Close(websocket.StatusNormalClosure, "")
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return nil
	}
	return err
}

func mapWSErr(err error) error {
	if status := websocket.CloseStatus(err); status != -1 {
		return fmt.Errorf("%w (%d)", ErrClosedByPeer, status)
	}
	if errors.Is(err, io.EOF) {
		return ErrClosedByPeer
	}
	return err
}
