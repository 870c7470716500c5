package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deskwire/internal/domain"
	"deskwire/internal/pb"
	"deskwire/internal/transport"
)

// DialFunc opens a Conn to uri.
type DialFunc func(ctx context.Context, uri string) (*transport.Conn, error)

// HostSelector yields the rendezvous host and URI scheme.
type HostSelector interface {
	Host(ctx context.Context) string
	Scheme() string
}

// ErrUnexpectedResponse is returned when the rendezvous server answers with
// a message that is neither a punch-hole nor a relay response.
var ErrUnexpectedResponse = errors.New("rendezvous: unexpected response")

// Client runs punch-hole negotiations.
type Client struct {
	hosts          HostSelector
	dial           DialFunc
	licenceKey     string
	token          string
	connectTimeout time.Duration
	log            *zap.Logger
}

// Config configures NewClient.
type Config struct {
	Hosts          HostSelector
	Dial           DialFunc
	LicenceKey     string
	Token          string
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 12 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		hosts:          cfg.Hosts,
		dial:           cfg.Dial,
		licenceKey:     cfg.LicenceKey,
		token:          cfg.Token,
		connectTimeout: cfg.ConnectTimeout,
		log:            cfg.Logger,
	}
}

// Negotiate asks the rendezvous server for a path to id. The negotiation
// connection is always closed before returning; the session runs on a
// separate connection to the returned endpoint.
func (c *Client) Negotiate(ctx context.Context, id string) (domain.ConnectionDescriptor, error) {
	host := c.hosts.Host(ctx)
	uri := RendezvousURI(c.hosts.Scheme(), host)
	log := c.log.With(zap.String("peer", id), zap.String("uri", uri))

	dctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	conn, err := c.dial(dctx, uri)
	cancel()
	if err != nil {
		return domain.ConnectionDescriptor{}, fmt.Errorf("connect to rendezvous server: %w", err)
	}
	defer conn.Close()
	log.Debug("connected to rendezvous server")

	err = conn.SendRendezvous(&pb.RendezvousMessage{Payload: &pb.PunchHoleRequest{
		ID:         id,
		LicenceKey: c.licenceKey,
		ConnType:   pb.ConnTypeDefault,
		NatType:    pb.NatSymmetric,
		Token:      c.token,
	}})
	if err != nil {
		return domain.ConnectionDescriptor{}, fmt.Errorf("send punch hole request: %w", err)
	}
	msg, err := conn.NextRendezvous(ctx)
	if err != nil {
		return domain.ConnectionDescriptor{}, fmt.Errorf("await rendezvous response: %w", err)
	}
	_ = conn.Close()

	switch r := msg.Payload.(type) {
	case *pb.PunchHoleResponse:
		f := punchHoleFailure(r)
		log.Info("punch hole refused", zap.String("reason", f.Message()))
		return domain.ConnectionDescriptor{}, f
	case *pb.RelayResponse:
		log.Info("relay response",
			zap.String("relay_server", r.RelayServer), zap.String("version", r.Version))
		if r.RefuseReason != "" {
			return domain.ConnectionDescriptor{}, &domain.NegotiationFailure{Kind: domain.FailureOther, Text: r.RefuseReason}
		}
		if r.Version == "" {
			return domain.ConnectionDescriptor{}, domain.ErrUnsupportedPeerVersion
		}
		endpoint := DefaultRelayURI(c.hosts.Scheme(), host)
		if r.RelayServer != "" {
			endpoint = RelayURI(c.hosts.Scheme(), r.RelayServer)
		}
		return domain.ConnectionDescriptor{
			Endpoint:    endpoint,
			Kind:        domain.ConnRelay,
			PeerVersion: r.Version,
			PeerKey:     r.Pk,
			UUID:        r.UUID,
		}, nil
	default:
		return domain.ConnectionDescriptor{}, ErrUnexpectedResponse
	}
}

func punchHoleFailure(r *pb.PunchHoleResponse) *domain.NegotiationFailure {
	if r.OtherFailure != "" {
		return &domain.NegotiationFailure{Kind: domain.FailureOther, Text: r.OtherFailure}
	}
	switch r.Failure {
	case pb.FailureIDNotExist:
		return &domain.NegotiationFailure{Kind: domain.FailureIDNotExist}
	case pb.FailureOffline:
		return &domain.NegotiationFailure{Kind: domain.FailureOffline}
	case pb.FailureLicenseMismatch:
		return &domain.NegotiationFailure{Kind: domain.FailureLicenseMismatch}
	case pb.FailureLicenseOveruse:
		return &domain.NegotiationFailure{Kind: domain.FailureLicenseOveruse}
	}
	return &domain.NegotiationFailure{
		Kind: domain.FailureOther,
		Text: fmt.Sprintf("Unknown punch hole failure (%d)", r.Failure),
	}
}

// RequestRelay binds conn, freshly dialed to desc.Endpoint, to the relay
// slot the rendezvous server reserved.
func (c *Client) RequestRelay(conn *transport.Conn, desc domain.ConnectionDescriptor) error {
	return conn.SendRendezvous(&pb.RendezvousMessage{Payload: &pb.RequestRelay{
		LicenceKey: c.licenceKey,
		UUID:       desc.UUID,
	}})
}
