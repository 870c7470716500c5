package transport

import (
	"context"
	"fmt"
	"net/url"
)

// DialOptions configures Dial.
type DialOptions struct {
	Conn Options
	// MaxFrame bounds inbound frames on both stream kinds. Zero means 64 MiB.
	MaxFrame int
}

const defaultMaxFrame = 64 << 20

// Dial opens a Conn to uri. ws:// and wss:// use websockets; tcp:// uses the
// header codec.
func Dial(ctx context.Context, uri string, opts DialOptions) (*Conn, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", uri, err)
	}
	max := opts.MaxFrame
	if max <= 0 {
		max = defaultMaxFrame
	}
	var s Stream
	switch u.Scheme {
	case "ws", "wss":
		s, err = DialWebsocket(ctx, uri, int64(max))
	case "tcp":
		s, err = DialTCP(ctx, u.Host, max)
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", uri, err)
	}
	return NewConn(s, opts.Conn), nil
}
