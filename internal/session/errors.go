package session

import (
	"errors"
	"fmt"

	"deskwire/internal/domain"
	"deskwire/internal/transport"
)

var (
	// ErrNoChallenge is returned by Login before the host sent its Hash.
	ErrNoChallenge = errors.New("session: no login challenge yet")
	// ErrNotConnected is returned by actions that need a live transport.
	ErrNotConnected = errors.New("session: not connected")
	// ErrNoDisplay ends a session whose host reports zero displays.
	ErrNoDisplay = errors.New("session: remote has no display")
	// ErrUnknownOption is returned by ToggleOption for unrecognized names.
	ErrUnknownOption = errors.New("session: unknown option")
)

// ClosedByHostError ends a session the host closed with a reason.
type ClosedByHostError struct {
	Reason string
}

func (e *ClosedByHostError) Error() string {
	return fmt.Sprintf("session closed by host: %s", e.Reason)
}

// reported reports whether err was already shown to the user by the
// handler that produced it.
func reported(err error) bool {
	var closed *ClosedByHostError
	return errors.Is(err, ErrNoDisplay) || errors.As(err, &closed)
}

// userMessage maps a fatal error to the msgbox title and text.
func userMessage(err error) (title, text string) {
	var nf *domain.NegotiationFailure
	switch {
	case errors.As(err, &nf):
		return "Error", nf.Message()
	case errors.Is(err, domain.ErrUnsupportedPeerVersion):
		return "Error", domain.UnsupportedPeerVersionText
	case errors.Is(err, transport.ErrClosedByPeer):
		return "Connection Error", "Reset by the peer"
	}
	return "Connection Error", err.Error()
}
