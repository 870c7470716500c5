package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deskwire/internal/crypto"
	"deskwire/internal/domain"
	"deskwire/internal/handshake"
	"deskwire/internal/outbound"
	"deskwire/internal/pb"
	"deskwire/internal/transport"
)

// Negotiator finds a path to a peer and binds a fresh connection to it.
type Negotiator interface {
	Negotiate(ctx context.Context, id string) (domain.ConnectionDescriptor, error)
	RequestRelay(conn *transport.Conn, desc domain.ConnectionDescriptor) error
}

// DialFunc opens the session transport to endpoint.
type DialFunc func(ctx context.Context, endpoint string) (*transport.Conn, error)

// Securer runs the key handshake on a fresh connection.
type Securer interface {
	Secure(ctx context.Context, ch handshake.Channel, id string, signedPk []byte) bool
}

// Deps are the process-wide services a session uses.
type Deps struct {
	Negotiator Negotiator
	Dial       DialFunc
	Handshake  Securer
	Store      domain.OptionStore
	Logger     *zap.Logger
}

// Frontend holds the per-session collaborators. Nil members are replaced
// with no-op implementations.
type Frontend struct {
	UI        domain.UI
	Decoder   domain.VideoDecoder
	Audio     domain.AudioSink
	Clipboard domain.Clipboard
}

// Config tunes a session.
type Config struct {
	MyID           string
	MyName         string
	QueueInterval  time.Duration
	ConnectTimeout time.Duration
}

// ErrClosed is returned by Start and Reconnect after Close.
var ErrClosed = errors.New("session: closed")

// Session is the handle for one remote peer. All exported methods are safe
// for concurrent use; Start runs the dispatch loop on the caller's goroutine.
type Session struct {
	id     string
	handle string
	deps   Deps
	fe     Frontend
	cfg    Config
	log    *zap.Logger

	decoderOnce sync.Once

	mu         sync.Mutex
	state      domain.ConnState
	cur        *attempt
	closed     bool
	opts       domain.Options
	hash       *pb.Hash
	pwHash     []byte
	peer       *pb.PeerInfo
	firstFrame bool
	video      videoStats
}

// attempt is one connection from negotiation to teardown.
type attempt struct {
	ctx     context.Context
	cancel  context.CancelFunc
	queue   *outbound.Queue
	conn    *transport.Conn
	target  domain.PeerIdentity
	stopped bool
}

// New creates an idle session for peer id and loads its stored options.
func New(id string, deps Deps, fe Frontend, cfg Config) (*Session, error) {
	if id == "" {
		return nil, errors.New("session: empty peer id")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.MyID == "" {
		cfg.MyID = "web"
	}
	if cfg.MyName == "" {
		cfg.MyName = cfg.MyID
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 12 * time.Second
	}
	fe = fe.withDefaults()

	opts, err := deps.Store.LoadPeer(id)
	if err != nil {
		return nil, fmt.Errorf("load options for %s: %w", id, err)
	}
	if opts == nil {
		opts = domain.Options{}
	}

	handle := uuid.NewString()
	s := &Session{
		id:     id,
		handle: handle,
		deps:   deps,
		fe:     fe,
		cfg:    cfg,
		log:    deps.Logger.With(zap.String("session", handle), zap.String("peer", id)),
		opts:   opts,
	}
	if stored := opts.Get(domain.OptPassword); stored != "" {
		if h, err := crypto.FromB64(stored); err == nil {
			s.pwHash = h
		} else {
			s.log.Debug("ignoring undecodable stored password", zap.Error(err))
		}
	}
	return s, nil
}

// ID returns the peer id.
func (s *Session) ID() string { return s.id }

// Handle returns the unique id of this session handle.
func (s *Session) Handle() string { return s.handle }

// State returns the current lifecycle state.
func (s *Session) State() domain.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PeerInfo returns the last peer info the host reported, or nil.
func (s *Session) PeerInfo() *pb.PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Target returns the identity the live connection attempt is bound to: the
// peer id and the signed key the rendezvous server advertised. It is zero
// when no attempt is live.
func (s *Session) Target() domain.PeerIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.cur.stopped {
		return domain.PeerIdentity{}
	}
	return s.cur.target
}

// Options returns a copy of the peer's options.
func (s *Session) Options() domain.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Clone()
}

func (s *Session) setState(a *attempt, st domain.ConnState) {
	s.mu.Lock()
	if s.cur == a && !a.stopped {
		s.state = st
	}
	s.mu.Unlock()
}

// Start connects to the peer and runs the dispatch loop until the session
// ends. It returns nil when the session was closed locally and the fatal
// error otherwise; fatal errors are also shown through the UI.
//
// Steps:
//  1. Supersede any previous attempt and enter Negotiating.
//  2. Negotiate with the rendezvous server and bind the attempt to the
//     peer identity it returned.
//  3. Dial the endpoint, and for relayed connections claim the relay slot.
//  4. Enter Handshaking and try to secure the transport; an unverifiable
//     peer key leaves the session unsecured rather than failing it.
//  5. Start the outbound queue and dispatch inbound messages until a fatal
//     error, Close or a newer attempt ends the loop.
func (s *Session) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a := &attempt{
		ctx:    ctx,
		cancel: cancel,
		queue:  outbound.New(s.cfg.QueueInterval, s.log),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return ErrClosed
	}
	prev := s.cur
	s.cur = a
	s.state = domain.StateNegotiating
	s.hash = nil
	s.firstFrame = false
	s.video = videoStats{}
	s.mu.Unlock()
	if prev != nil {
		s.stop(prev)
	}

	s.log.Info("session starting")
	return s.finish(a, s.run(a))
}

func (s *Session) run(a *attempt) error {
	desc, err := s.deps.Negotiator.Negotiate(a.ctx, s.id)
	if err != nil {
		return err
	}
	target := domain.PeerIdentity{ID: s.id, Key: desc.PeerKey}
	s.mu.Lock()
	a.target = target
	s.mu.Unlock()
	s.log.Info("negotiated",
		zap.String("endpoint", desc.Endpoint),
		zap.Stringer("kind", desc.Kind),
		zap.String("version", desc.PeerVersion))

	dctx, cancel := context.WithTimeout(a.ctx, s.cfg.ConnectTimeout)
	conn, err := s.deps.Dial(dctx, desc.Endpoint)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", desc.Endpoint, err)
	}
	if !s.attach(a, conn) {
		return context.Canceled
	}
	if desc.Kind == domain.ConnRelay {
		if err := s.deps.Negotiator.RequestRelay(conn, desc); err != nil {
			return fmt.Errorf("request relay: %w", err)
		}
	}

	s.setState(a, domain.StateHandshaking)
	secure := s.deps.Handshake.Secure(a.ctx, conn, target.ID, target.Key)
	s.fe.UI.PushEvent("connection_ready", map[string]bool{"secure": secure, "direct": false})

	go a.queue.Run(a.ctx, conn)
	return s.loop(a)
}

// attach records conn on a unless a was stopped meanwhile, in which case
// conn is closed.
func (s *Session) attach(a *attempt, conn *transport.Conn) bool {
	s.mu.Lock()
	if a.stopped {
		s.mu.Unlock()
		_ = conn.Close()
		return false
	}
	a.conn = conn
	s.mu.Unlock()
	return true
}

func (s *Session) finish(a *attempt, err error) error {
	s.mu.Lock()
	superseded := s.cur != a || a.stopped
	s.mu.Unlock()
	if superseded {
		s.stop(a)
		s.log.Info("session stopped")
		return nil
	}
	if err == nil {
		s.stop(a)
		s.setStateTerminal(a, domain.StateClosed)
		return nil
	}

	if !reported(err) {
		title, text := userMessage(err)
		s.fe.UI.Msgbox("error", title, text, "")
	}
	s.log.Warn("session failed", zap.Error(err))
	s.setStateTerminal(a, domain.StateFailed)
	s.stop(a)
	s.fe.Decoder.Reset()
	return err
}

func (s *Session) setStateTerminal(a *attempt, st domain.ConnState) {
	s.mu.Lock()
	if s.cur == a {
		s.state = st
	}
	s.mu.Unlock()
}

// stop cancels a, halts its queue and closes its transport. It is
// idempotent.
func (s *Session) stop(a *attempt) {
	s.mu.Lock()
	a.stopped = true
	conn := a.conn
	s.mu.Unlock()

	a.cancel()
	a.queue.Stop()
	if conn != nil {
		if err := conn.Close(); err != nil {
			s.log.Debug("close transport", zap.Error(err))
		}
	}
}

// Close ends the session, unblocking a running Start, and releases the
// decoder. A failed session stays Failed; otherwise the state becomes
// Closed. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	a := s.cur
	if a != nil {
		a.stopped = true
	}
	if !s.state.Terminal() {
		s.state = domain.StateClosed
	}
	s.mu.Unlock()

	if a != nil {
		s.stop(a)
	}
	var err error
	s.decoderOnce.Do(func() {
		err = s.fe.Decoder.Close()
		s.log.Info("session closed")
	})
	return err
}

// Reconnect tears down the current connection and starts again. Like
// Start, it blocks for the life of the new connection.
func (s *Session) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	a := s.cur
	s.mu.Unlock()
	if a != nil {
		s.stop(a)
	}
	s.fe.Decoder.Reset()
	return s.Start(ctx)
}

// current returns the live attempt, if any.
func (s *Session) current() *attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.cur.stopped {
		return nil
	}
	return s.cur
}

// send writes m straight to the transport, bypassing the outbound queue.
func (s *Session) send(m *pb.Message) error {
	a := s.current()
	if a == nil {
		return ErrNotConnected
	}
	s.mu.Lock()
	conn := a.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.SendMessage(m)
}

// push appends m to the outbound queue.
func (s *Session) push(m *pb.Message) error {
	a := s.current()
	if a == nil || !a.queue.Push(m) {
		return ErrNotConnected
	}
	return nil
}

// pushIfConnected queues m when a connection attempt is live. Option
// changes made offline reach the host with the next login instead.
func (s *Session) pushIfConnected(m *pb.Message) error {
	if s.current() == nil {
		return nil
	}
	return s.push(m)
}
