package hoststub

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/sign"
	"nhooyr.io/websocket"

	"deskwire/internal/crypto"
	"deskwire/internal/pb"
	"deskwire/internal/transport"
)

// DefaultVersion is the host version advertised in relay responses.
const DefaultVersion = "1.2.0"

// Config describes the emulated host.
type Config struct {
	ID string
	// Password is the host password. Empty accepts every login.
	Password string
	// Refuse, when set, is sent instead of a RelayResponse.
	Refuse *pb.PunchHoleResponse
	// OmitVersion sends a RelayResponse without a version.
	OmitVersion bool
	Version     string
	// OmitKey sends a RelayResponse without a signed host key.
	OmitKey bool
	// RelayServer is advertised in the RelayResponse.
	RelayServer string
	Salt        string
	Challenge   string
	PeerInfo    *pb.PeerInfo
	// VideoBatch is the number of frames in the batch sent after login.
	VideoBatch int
	Logger     *zap.Logger
}

// Server is the emulated rendezvous server, relay and host.
type Server struct {
	cfg Config
	log *zap.Logger

	anchorPub  *[32]byte
	anchorPriv *[64]byte
	signPub    *[32]byte
	signPriv   *[64]byte
	boxPub     *[32]byte
	boxPriv    *[32]byte

	mu          sync.Mutex
	relayServer string
	rendezvous  []*pb.RendezvousMessage
	inbound     []*pb.Message
	host        *transport.Conn
	secured     bool
}

// New generates fresh keys for the trust anchor and the host.
func New(cfg Config) (*Server, error) {
	if cfg.ID == "" {
		return nil, errors.New("hoststub: empty host id")
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Salt == "" {
		cfg.Salt = uuid.NewString()
	}
	if cfg.Challenge == "" {
		cfg.Challenge = uuid.NewString()
	}
	if cfg.PeerInfo == nil {
		cfg.PeerInfo = &pb.PeerInfo{
			Username: "host",
			Hostname: "stub",
			Platform: "Linux",
			Version:  cfg.Version,
			Displays: []pb.DisplayInfo{{Width: 1920, Height: 1080, Name: "0", Online: true}},
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, log: cfg.Logger, relayServer: cfg.RelayServer}
	var err error
	if s.anchorPub, s.anchorPriv, err = sign.GenerateKey(rand.Reader); err != nil {
		return nil, fmt.Errorf("generate anchor key: %w", err)
	}
	if s.signPub, s.signPriv, err = sign.GenerateKey(rand.Reader); err != nil {
		return nil, fmt.Errorf("generate host signing key: %w", err)
	}
	if s.boxPub, s.boxPriv, err = box.GenerateKey(rand.Reader); err != nil {
		return nil, fmt.Errorf("generate host box key: %w", err)
	}
	return s, nil
}

// TrustAnchor returns the base64 key clients must trust to secure
// sessions with this host.
func (s *Server) TrustAnchor() string { return crypto.B64(s.anchorPub[:]) }

// SetRelayServer changes the relay address advertised to clients.
func (s *Server) SetRelayServer(addr string) {
	s.mu.Lock()
	s.relayServer = addr
	s.mu.Unlock()
}

// Rendezvous returns the negotiation messages received so far.
func (s *Server) Rendezvous() []*pb.RendezvousMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*pb.RendezvousMessage(nil), s.rendezvous...)
}

// Inbound returns the session messages received so far.
func (s *Server) Inbound() []*pb.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*pb.Message(nil), s.inbound...)
}

// Secured reports whether the last relay session installed a key.
func (s *Server) Secured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secured
}

// Send writes m to the connected client.
func (s *Server) Send(m *pb.Message) error {
	s.mu.Lock()
	c := s.host
	s.mu.Unlock()
	if c == nil {
		return errors.New("hoststub: no client connected")
	}
	return c.SendMessage(m)
}

// Disconnect drops the connected client.
func (s *Server) Disconnect() {
	s.mu.Lock()
	c := s.host
	s.host = nil
	s.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) (*transport.Conn, bool) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept", zap.Error(err))
		return nil, false
	}
	return transport.NewConn(transport.NewWebsocketStream(ws, 64<<20), transport.Options{
		ReadTimeout: -1,
		Logger:      s.log,
	}), true
}

// RendezvousHandler serves the negotiation endpoint.
func (s *Server) RendezvousHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, ok := s.accept(w, r)
		if !ok {
			return
		}
		defer conn.Close()

		msg, err := conn.NextRendezvous(r.Context())
		if err != nil {
			s.log.Debug("rendezvous read", zap.Error(err))
			return
		}
		s.mu.Lock()
		s.rendezvous = append(s.rendezvous, msg)
		relayServer := s.relayServer
		s.mu.Unlock()

		req, ok := msg.Payload.(*pb.PunchHoleRequest)
		if !ok {
			s.log.Debug("unexpected rendezvous message")
			return
		}
		s.log.Info("punch hole request", zap.String("id", req.ID))

		var reply pb.RendezvousPayload
		switch {
		case s.cfg.Refuse != nil:
			reply = s.cfg.Refuse
		case req.ID != s.cfg.ID:
			reply = &pb.PunchHoleResponse{Failure: pb.FailureIDNotExist}
		default:
			rr := &pb.RelayResponse{UUID: uuid.NewString(), RelayServer: relayServer}
			if !s.cfg.OmitVersion {
				rr.Version = s.cfg.Version
			}
			if !s.cfg.OmitKey {
				rr.Pk = crypto.Sign((&pb.IdPk{ID: s.cfg.ID, Pk: s.signPub[:]}).Marshal(), s.anchorPriv)
			}
			reply = rr
		}
		if err := conn.SendRendezvous(&pb.RendezvousMessage{Payload: reply}); err != nil {
			s.log.Debug("rendezvous reply", zap.Error(err))
			return
		}
		_ = conn.Flush()
		// Hold the connection until the client hangs up.
		_, _ = conn.NextRendezvous(r.Context())
	})
}

// RelayHandler serves the relay endpoint with the host behind it.
func (s *Server) RelayHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, ok := s.accept(w, r)
		if !ok {
			return
		}
		defer conn.Close()
		if err := s.serveHost(r.Context(), conn); err != nil {
			s.log.Debug("host session ended", zap.Error(err))
		}
	})
}

func (s *Server) serveHost(ctx context.Context, conn *transport.Conn) error {
	msg, err := conn.NextRendezvous(ctx)
	if err != nil {
		return fmt.Errorf("read relay request: %w", err)
	}
	s.mu.Lock()
	s.rendezvous = append(s.rendezvous, msg)
	s.host = conn
	s.secured = false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.host == conn {
			s.host = nil
		}
		s.mu.Unlock()
	}()

	if err := s.handshake(ctx, conn); err != nil {
		return err
	}
	if err := conn.SendMessage(pb.NewMessage(&pb.Hash{Salt: s.cfg.Salt, Challenge: s.cfg.Challenge})); err != nil {
		return err
	}

	for {
		m, err := conn.NextMessage(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.inbound = append(s.inbound, m)
		s.mu.Unlock()
		if req, ok := m.Payload.(*pb.LoginRequest); ok {
			if err := s.login(conn, req); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *transport.Conn) error {
	signed := crypto.Sign((&pb.IdPk{ID: s.cfg.ID, Pk: s.boxPub[:]}).Marshal(), s.signPriv)
	if err := conn.SendMessage(pb.NewMessage(&pb.SignedID{ID: signed})); err != nil {
		return err
	}
	m, err := conn.NextMessage(ctx)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	pk, ok := m.Payload.(*pb.PublicKey)
	if !ok {
		return fmt.Errorf("expected public key, got %T", m.Payload)
	}
	if len(pk.AsymmetricValue) == 0 {
		s.log.Info("client declined encryption")
		return nil
	}
	if len(pk.AsymmetricValue) != crypto.KeySize {
		return fmt.Errorf("client public key: want %d bytes, got %d", crypto.KeySize, len(pk.AsymmetricValue))
	}
	var theirPub [32]byte
	copy(theirPub[:], pk.AsymmetricValue)
	key, err := crypto.OpenSessionKey(pk.SymmetricValue, &theirPub, s.boxPriv)
	if err != nil {
		return err
	}
	defer crypto.WipeKey(key)
	if err := conn.SetSecretKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	s.secured = true
	s.mu.Unlock()
	s.log.Info("host session secured")
	return nil
}

func (s *Server) login(conn *transport.Conn, req *pb.LoginRequest) error {
	if s.cfg.Password != "" {
		var reason string
		switch {
		case len(req.Password) == 0:
			reason = "Empty Password"
		case !bytes.Equal(req.Password, crypto.Credential(crypto.PasswordHash(s.cfg.Password, s.cfg.Salt), s.cfg.Challenge)):
			reason = "Wrong Password"
		}
		if reason != "" {
			return conn.SendMessage(pb.NewMessage(&pb.LoginResponse{Error: reason}))
		}
	}
	if err := conn.SendMessage(pb.NewMessage(&pb.LoginResponse{PeerInfo: s.cfg.PeerInfo})); err != nil {
		return err
	}
	if s.cfg.VideoBatch <= 0 {
		return nil
	}
	frames := make([]pb.EncodedVideoFrame, s.cfg.VideoBatch)
	for i := range frames {
		frames[i] = pb.EncodedVideoFrame{Data: []byte{byte(i)}, Key: i == 0, Pts: int64(i)}
	}
	return conn.SendMessage(pb.NewMessage(&pb.VideoFrame{Codec: pb.CodecVP9, Frames: frames}))
}
