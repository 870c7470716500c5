package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPeerVersion is returned when the relay response carries no
// protocol version.
var ErrUnsupportedPeerVersion = errors.New("unsupported peer version")

// UnsupportedPeerVersionText is shown to the user for ErrUnsupportedPeerVersion.
const UnsupportedPeerVersionText = "Remote version is low, not support web"

// FailureKind classifies a punch-hole failure.
type FailureKind int

const (
	FailureIDNotExist FailureKind = iota
	FailureOffline
	FailureLicenseMismatch
	FailureLicenseOveruse
	FailureOther
)

// NegotiationFailure is a rendezvous refusal. It is fatal to the attempt.
type NegotiationFailure struct {
	Kind FailureKind
	Text string // set for FailureOther
}

// Message returns the user-facing text for the failure.
func (f *NegotiationFailure) Message() string {
	switch f.Kind {
	case FailureIDNotExist:
		return "ID does not exist"
	case FailureOffline:
		return "Remote desktop is offline"
	case FailureLicenseMismatch:
		return "Key mismatch"
	case FailureLicenseOveruse:
		return "Key overuse"
	}
	return f.Text
}

func (f *NegotiationFailure) Error() string {
	return fmt.Sprintf("negotiation failed: %s", f.Message())
}

// LoginFailureKind classifies a login error reported by the host.
type LoginFailureKind int

const (
	LoginEmptyPassword LoginFailureKind = iota
	LoginWrongPassword
	Login2FA
	LoginOther
)

// Login error strings sent by hosts.
const (
	LoginMsgPasswordEmpty = "Empty Password"
	LoginMsgPasswordWrong = "Wrong Password"
	LoginMsg2FAWrong      = "Wrong 2FA Code"
	LoginMsg2FARequired   = "2FA Required"
)

// LoginFailure is a recoverable login error.
type LoginFailure struct {
	Kind LoginFailureKind
	Text string
}

func (f *LoginFailure) Error() string { return "login failed: " + f.Text }

// ClassifyLoginError maps a host error string to a LoginFailure.
func ClassifyLoginError(text string) *LoginFailure {
	switch text {
	case LoginMsgPasswordEmpty:
		return &LoginFailure{Kind: LoginEmptyPassword, Text: text}
	case LoginMsgPasswordWrong:
		return &LoginFailure{Kind: LoginWrongPassword, Text: text}
	case LoginMsg2FAWrong, LoginMsg2FARequired:
		return &LoginFailure{Kind: Login2FA, Text: text}
	}
	return &LoginFailure{Kind: LoginOther, Text: text}
}
