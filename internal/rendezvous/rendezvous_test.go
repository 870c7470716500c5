package rendezvous_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskwire/internal/domain"
	"deskwire/internal/pb"
	"deskwire/internal/rendezvous"
	"deskwire/internal/transport"
)

func TestEndpoints(t *testing.T) {
	cases := []struct {
		host, rv, relay, defRelay string
	}{
		{"rs-sg.rustdesk.com", "ws://rs-sg.rustdesk.com:21118", "ws://rs-sg.rustdesk.com:21119", "ws://rs-sg.rustdesk.com:21119"},
		{"example.org:30000", "ws://example.org:30002", "ws://example.org:30002", "ws://example.org:30003"},
		{"[::1]:21116", "ws://[::1]:21118", "ws://[::1]:21118", "ws://[::1]:21119"},
		{"[fe80::1]", "ws://[fe80::1]:21118", "ws://[fe80::1]:21119", "ws://[fe80::1]:21119"},
		{"fe80::1", "ws://[fe80::1]:21118", "ws://[fe80::1]:21119", "ws://[fe80::1]:21119"},
		{"10.0.0.5:21116", "ws://10.0.0.5:21118", "ws://10.0.0.5:21118", "ws://10.0.0.5:21119"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.rv, rendezvous.RendezvousURI("ws", tc.host), tc.host)
		assert.Equal(t, tc.relay, rendezvous.RelayURI("ws", tc.host), tc.host)
		assert.Equal(t, tc.defRelay, rendezvous.DefaultRelayURI("ws", tc.host), tc.host)
	}
	assert.Equal(t, "tcp://h:21118", rendezvous.RendezvousURI("tcp", "h"))
}

type memSettings struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memSettings) Setting(k string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[k], nil
}

func (s *memSettings) SetSetting(k, v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[k] = v
	return nil
}

func TestSelector_FirstReachableWinsAndPersists(t *testing.T) {
	settings := &memSettings{m: map[string]string{}}
	var calls sync.Map
	sel := rendezvous.NewSelector(rendezvous.SelectorConfig{
		Hosts: []string{"a", "b", "c"},
		Probe: func(ctx context.Context, uri string) error {
			calls.Store(uri, true)
			switch uri {
			case "ws://b:21118":
				return nil
			case "ws://c:21118":
				time.Sleep(50 * time.Millisecond)
				return nil
			}
			return errors.New("refused")
		},
		Settings: settings,
	})
	assert.Equal(t, "b", sel.Host(context.Background()))
	assert.Equal(t, "b", settings.m[domain.SettingRendezvousServer])

	// Probed once per process.
	calls.Delete("ws://b:21118")
	assert.Equal(t, "b", sel.Host(context.Background()))
	_, again := calls.Load("ws://b:21118")
	assert.False(t, again)
}

func TestSelector_SeedAndCustom(t *testing.T) {
	settings := &memSettings{m: map[string]string{domain.SettingRendezvousServer: "saved"}}
	sel := rendezvous.NewSelector(rendezvous.SelectorConfig{
		Hosts:    []string{"a"},
		Probe:    func(context.Context, string) error { return errors.New("down") },
		Settings: settings,
	})
	assert.Equal(t, "saved", sel.Host(context.Background()))

	custom := rendezvous.NewSelector(rendezvous.SelectorConfig{
		Custom: "my.server:4000",
		Probe: func(context.Context, string) error {
			t.Fatal("custom server must not be probed")
			return nil
		},
	})
	assert.Equal(t, "my.server:4000", custom.Host(context.Background()))
}

// fakeServer answers one punch-hole request over an in-memory pipe.
type fakeServer struct {
	req    chan *pb.PunchHoleRequest
	closed chan struct{}
	uri    string
}

func newFakeServer(t *testing.T, reply *pb.RendezvousMessage) (*fakeServer, rendezvous.DialFunc) {
	t.Helper()
	fs := &fakeServer{req: make(chan *pb.PunchHoleRequest, 1), closed: make(chan struct{})}
	dial := func(ctx context.Context, uri string) (*transport.Conn, error) {
		fs.uri = uri
		client, server := transport.Pipe()
		go func() {
			defer close(fs.closed)
			b, err := server.ReadFrame(context.Background())
			if err != nil {
				return
			}
			m, err := pb.UnmarshalRendezvous(b)
			if err != nil {
				return
			}
			fs.req <- m.Payload.(*pb.PunchHoleRequest)
			out, _ := reply.Marshal()
			_ = server.WriteFrame(context.Background(), out)
			// Blocks until the client side closes.
			for {
				if _, err := server.ReadFrame(context.Background()); err != nil {
					return
				}
			}
		}()
		return transport.NewConn(client, transport.Options{ReadTimeout: time.Second}), nil
	}
	return fs, dial
}

func newClient(dial rendezvous.DialFunc) *rendezvous.Client {
	return rendezvous.NewClient(rendezvous.Config{
		Hosts:      rendezvous.NewSelector(rendezvous.SelectorConfig{Custom: "rv.local"}),
		Dial:       dial,
		LicenceKey: "lic",
		Token:      "tok",
	})
}

func waitClosed(t *testing.T, fs *fakeServer) {
	t.Helper()
	select {
	case <-fs.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("negotiation connection left open")
	}
}

func TestNegotiate_Failures(t *testing.T) {
	cases := []struct {
		resp *pb.PunchHoleResponse
		kind domain.FailureKind
		text string
	}{
		{&pb.PunchHoleResponse{Failure: pb.FailureIDNotExist}, domain.FailureIDNotExist, "ID does not exist"},
		{&pb.PunchHoleResponse{Failure: pb.FailureOffline}, domain.FailureOffline, "Remote desktop is offline"},
		{&pb.PunchHoleResponse{Failure: pb.FailureLicenseMismatch}, domain.FailureLicenseMismatch, "Key mismatch"},
		{&pb.PunchHoleResponse{Failure: pb.FailureLicenseOveruse}, domain.FailureLicenseOveruse, "Key overuse"},
		{&pb.PunchHoleResponse{OtherFailure: "server busy"}, domain.FailureOther, "server busy"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			fs, dial := newFakeServer(t, &pb.RendezvousMessage{Payload: tc.resp})
			_, err := newClient(dial).Negotiate(context.Background(), "123")
			var nf *domain.NegotiationFailure
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tc.kind, nf.Kind)
			assert.Equal(t, tc.text, nf.Message())
			waitClosed(t, fs)
		})
	}
}

func TestNegotiate_RequestFields(t *testing.T) {
	fs, dial := newFakeServer(t, &pb.RendezvousMessage{Payload: &pb.PunchHoleResponse{Failure: pb.FailureOffline}})
	_, _ = newClient(dial).Negotiate(context.Background(), "123456")
	req := <-fs.req
	assert.Equal(t, "123456", req.ID)
	assert.Equal(t, "lic", req.LicenceKey)
	assert.Equal(t, "tok", req.Token)
	assert.Equal(t, pb.NatSymmetric, req.NatType)
	assert.Equal(t, pb.ConnTypeDefault, req.ConnType)
	assert.Equal(t, "ws://rv.local:21118", fs.uri)
}

func TestNegotiate_RelayResponse(t *testing.T) {
	fs, dial := newFakeServer(t, &pb.RendezvousMessage{Payload: &pb.RelayResponse{
		UUID: "u-1", Pk: []byte("signed"), Version: "1.2.0", RelayServer: "relay.local:30000",
	}})
	desc, err := newClient(dial).Negotiate(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionDescriptor{
		Endpoint:    "ws://relay.local:30002",
		Kind:        domain.ConnRelay,
		PeerVersion: "1.2.0",
		PeerKey:     []byte("signed"),
		UUID:        "u-1",
	}, desc)
	waitClosed(t, fs)
}

func TestNegotiate_DefaultRelayEndpoint(t *testing.T) {
	_, dial := newFakeServer(t, &pb.RendezvousMessage{Payload: &pb.RelayResponse{UUID: "u", Version: "1.2.0"}})
	desc, err := newClient(dial).Negotiate(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "ws://rv.local:21119", desc.Endpoint)
}

func TestNegotiate_MissingVersion(t *testing.T) {
	fs, dial := newFakeServer(t, &pb.RendezvousMessage{Payload: &pb.RelayResponse{UUID: "u"}})
	_, err := newClient(dial).Negotiate(context.Background(), "123")
	assert.ErrorIs(t, err, domain.ErrUnsupportedPeerVersion)
	waitClosed(t, fs)
}

func TestNegotiate_Unexpected(t *testing.T) {
	_, dial := newFakeServer(t, &pb.RendezvousMessage{Payload: &pb.RequestRelay{UUID: "u"}})
	_, err := newClient(dial).Negotiate(context.Background(), "123")
	assert.ErrorIs(t, err, rendezvous.ErrUnexpectedResponse)
}

func TestNegotiate_DialError(t *testing.T) {
	c := newClient(func(context.Context, string) (*transport.Conn, error) {
		return nil, errors.New("refused")
	})
	_, err := c.Negotiate(context.Background(), "123")
	assert.ErrorContains(t, err, "connect to rendezvous server")
}
