package domain

// ConnState is the lifecycle state of a session.
type ConnState int

const (
	StateIdle ConnState = iota
	StateNegotiating
	StateHandshaking
	StateAwaitingPassword
	StateLoggingIn
	StateStreaming
	StateClosed
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateNegotiating:      "negotiating",
	StateHandshaking:      "handshaking",
	StateAwaitingPassword: "awaiting-password",
	StateLoggingIn:        "logging-in",
	StateStreaming:        "streaming",
	StateClosed:           "closed",
	StateFailed:           "failed",
}

func (s ConnState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions are expected.
func (s ConnState) Terminal() bool { return s == StateClosed || s == StateFailed }
