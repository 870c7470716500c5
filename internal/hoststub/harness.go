package hoststub

import (
	"net"
	"net/http/httptest"
	"strconv"
)

// Harness runs a Server on two loopback listeners.
type Harness struct {
	*Server
	RendezvousHTTP *httptest.Server
	RelayHTTP      *httptest.Server
}

// Serve starts s and points its RelayResponse at the relay listener.
func Serve(s *Server) *Harness {
	h := &Harness{
		Server:         s,
		RendezvousHTTP: httptest.NewServer(s.RendezvousHandler()),
		RelayHTTP:      httptest.NewServer(s.RelayHandler()),
	}
	s.SetRelayServer(offsetAddr(h.RelayHTTP.Listener.Addr().String(), -2))
	return h
}

// CustomServer is the rendezvous host a client should be configured with.
// Clients add two to its port.
func (h *Harness) CustomServer() string {
	return offsetAddr(h.RendezvousHTTP.Listener.Addr().String(), -2)
}

// Close stops both listeners.
func (h *Harness) Close() {
	h.Disconnect()
	h.RendezvousHTTP.CloseClientConnections()
	h.RelayHTTP.CloseClientConnections()
	h.RendezvousHTTP.Close()
	h.RelayHTTP.Close()
}

func offsetAddr(addr string, delta int) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return addr
	}
	return net.JoinHostPort(host, strconv.Itoa(p+delta))
}
