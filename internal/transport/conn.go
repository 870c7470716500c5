package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"deskwire/internal/crypto"
	"deskwire/internal/pb"
)

// Defaults for Options.
const (
	DefaultReadTimeout   = 12 * time.Second
	DefaultFlushInterval = time.Millisecond
)

// Options tunes a Conn.
type Options struct {
	// ReadTimeout bounds each Next call. Zero means DefaultReadTimeout;
	// negative disables the timeout.
	ReadTimeout time.Duration
	// FlushInterval is the write coalescing tick.
	FlushInterval time.Duration
	Logger        *zap.Logger
}

// Conn is a framed, optionally encrypted duplex channel. The session key and
// both nonce counters live here and nowhere else.
type Conn struct {
	stream      Stream
	log         *zap.Logger
	readTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	frames chan []byte
	fmu    sync.Mutex // serializes flushes

	mu      sync.Mutex
	key     *[32]byte
	sendSeq uint64
	recvSeq uint64
	pending [][]byte
	err     error // terminal read or write error
	closed  bool
}

// NewConn starts the reader and the flush ticker on s.
func NewConn(s Stream, opts Options) *Conn {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		stream:      s,
		log:         opts.Logger,
		readTimeout: opts.ReadTimeout,
		ctx:         ctx,
		cancel:      cancel,
		frames:      make(chan []byte, 64),
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.flushLoop(opts.FlushInterval)
	return c
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	defer close(c.frames)
	for {
		b, err := c.stream.ReadFrame(c.ctx)
		if err != nil {
			c.fail(err)
			return
		}
		select {
		case c.frames <- b:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Conn) flushLoop(every time.Duration) {
	defer c.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-t.C:
			if err := c.flush(); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

// flush writes everything queued so far, in order.
func (c *Conn) flush() error {
	c.fmu.Lock()
	defer c.fmu.Unlock()
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, b := range batch {
		if err := c.stream.WriteFrame(c.ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil && !c.closed {
		c.err = err
		c.log.Debug("transport stopped", zap.Error(err))
	}
	c.mu.Unlock()
}

func (c *Conn) enqueue(b []byte, encrypt bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.err != nil {
		return c.err
	}
	if encrypt && c.key != nil {
		c.sendSeq++
		b = crypto.Encrypt(b, c.sendSeq, c.key)
	}
	c.pending = append(c.pending, b)
	return nil
}

// SendMessage queues a session-schema message, encrypted when keyed.
func (c *Conn) SendMessage(m *pb.Message) error {
	b, err := m.Marshal()
	if err != nil {
		return err
	}
	return c.enqueue(b, true)
}

// SendRendezvous queues a negotiation-schema message. It is never encrypted.
func (c *Conn) SendRendezvous(m *pb.RendezvousMessage) error {
	b, err := m.Marshal()
	if err != nil {
		return err
	}
	return c.enqueue(b, false)
}

// next waits for one raw frame.
func (c *Conn) next(ctx context.Context) ([]byte, error) {
	var timeout <-chan time.Time
	if c.readTimeout > 0 {
		t := time.NewTimer(c.readTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-c.ctx.Done():
		return nil, ErrClosed
	default:
	}
	select {
	case b, ok := <-c.frames:
		if !ok {
			return nil, c.terminalErr()
		}
		return b, nil
	case <-c.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, ErrTimeout
	}
}

func (c *Conn) terminalErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.err != nil {
		return c.err
	}
	return ErrClosedByPeer
}

// NextMessage waits for the next session message and decrypts it when
// keyed. A frame that fails authentication is fatal; one that only fails to
// decode is reported with ErrMalformed and the channel stays usable.
func (c *Conn) NextMessage(ctx context.Context) (*pb.Message, error) {
	b, err := c.next(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.key != nil {
		c.recvSeq++
		b, err = crypto.Decrypt(b, c.recvSeq, c.key)
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	m, err := pb.UnmarshalMessage(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return m, nil
}

// NextRendezvous waits for the next negotiation message.
func (c *Conn) NextRendezvous(ctx context.Context) (*pb.RendezvousMessage, error) {
	b, err := c.next(ctx)
	if err != nil {
		return nil, err
	}
	m, err := pb.UnmarshalRendezvous(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return m, nil
}

// SetSecretKey installs the session key. Frames queued earlier stay in
// plaintext; counters start so the first keyed frame uses nonce 1.
func (c *Conn) SetSecretKey(key *[32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.key != nil {
		return ErrKeyInstalled
	}
	k := *key
	c.key = &k
	c.sendSeq, c.recvSeq = 0, 0
	return nil
}

// Secured reports whether a session key is installed.
func (c *Conn) Secured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key != nil
}

// Flush writes queued frames now instead of waiting for the tick.
func (c *Conn) Flush() error {
	if err := c.flush(); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// Close stops both loops, drops unsent frames, wipes the key and releases
// the stream. It is safe to call repeatedly.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = nil
	if c.key != nil {
		crypto.WipeKey(c.key)
		c.key = nil
	}
	c.mu.Unlock()

	c.cancel()
	err := c.stream.Close()
	c.wg.Wait()
	if errors.Is(err, ErrClosed) {
		err = nil
	}
	return err
}
