package rendezvous

import (
	"net"
	"strconv"
	"strings"
)

// BasePort is the default port offsets are applied to.
const BasePort = 21116

// DefaultHosts is the public rendezvous host list.
var DefaultHosts = []string{
	"rs-sg.rustdesk.com",
	"rs-cn.rustdesk.com",
	"rs-us.rustdesk.com",
}

// hostPort is a host string split into its host and optional port. IPv6
// hosts keep their brackets.
type hostPort struct {
	host    string
	port    int
	hasPort bool
}

func splitHost(s string) hostPort {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return hostPort{host: s}
		}
		hp := hostPort{host: s[:end+1]}
		if rest := s[end+1:]; strings.HasPrefix(rest, ":") {
			if p, err := strconv.Atoi(rest[1:]); err == nil {
				hp.port, hp.hasPort = p, true
			}
		}
		return hp
	}
	if strings.Count(s, ":") >= 2 {
		return hostPort{host: "[" + s + "]"}
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return hostPort{host: s}
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return hostPort{host: host}
	}
	return hostPort{host: host, port: p, hasPort: true}
}

func uri(scheme, host string, port int) string {
	if scheme == "" {
		scheme = "ws"
	}
	return scheme + "://" + host + ":" + strconv.Itoa(port)
}

// RendezvousURI is the negotiation endpoint for host.
func RendezvousURI(scheme, host string) string {
	hp := splitHost(host)
	if hp.hasPort {
		return uri(scheme, hp.host, hp.port+2)
	}
	return uri(scheme, hp.host, BasePort+2)
}

// RelayURI is the relay endpoint for a relay_server value from a
// RelayResponse.
func RelayURI(scheme, relayServer string) string {
	hp := splitHost(relayServer)
	if hp.hasPort {
		return uri(scheme, hp.host, hp.port+2)
	}
	return uri(scheme, hp.host, BasePort+3)
}

// DefaultRelayURI is the relay endpoint used when the rendezvous server names
// none: the relay next to rendezvous host.
func DefaultRelayURI(scheme, host string) string {
	hp := splitHost(host)
	if hp.hasPort {
		return uri(scheme, hp.host, hp.port+3)
	}
	return uri(scheme, hp.host, BasePort+3)
}
