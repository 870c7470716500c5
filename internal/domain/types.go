package domain

import (
	"strconv"
	"time"
)

// PeerIdentity names the remote host a session targets.
type PeerIdentity struct {
	ID string
	// Key is the long-term verification key advertised for the peer, if any.
	Key []byte
}

// ConnKind is how the session reaches the peer.
type ConnKind int

const (
	ConnDirect ConnKind = iota
	ConnRelay
)

func (k ConnKind) String() string {
	if k == ConnRelay {
		return "relay"
	}
	return "direct"
}

// ConnectionDescriptor is the outcome of a successful negotiation.
type ConnectionDescriptor struct {
	Endpoint    string
	Kind        ConnKind
	PeerVersion string
	// PeerKey is the signed key blob from the rendezvous server.
	PeerKey []byte
	UUID    string
}

// Options is the persisted per-peer key/value configuration.
type Options map[string]string

// Well-known option names.
const (
	OptPassword            = "password"
	OptRemember            = "remember"
	OptInfo                = "info"
	OptTimestamp           = "tm"
	OptImageQuality        = "image-quality"
	OptShowRemoteCursor    = "show-remote-cursor"
	OptLockAfterSessionEnd = "lock-after-session-end"
	OptPrivacyMode         = "privacy-mode"
	OptDisableAudio        = "disable-audio"
	OptDisableClipboard    = "disable-clipboard"
	OptAutoLogin           = "auto-login"
	OptOSPassword          = "os-password"
)

// Well-known global setting keys.
const (
	SettingRendezvousServer = "rendezvous-server"
	SettingLastRemoteID     = "last-remote-id"
)

// Get returns the value of name or "".
func (o Options) Get(name string) string { return o[name] }

// Bool reports whether name holds a truthy value.
func (o Options) Bool(name string) bool {
	switch o[name] {
	case "Y", "true", "1":
		return true
	}
	return false
}

// Set stores value under name, deleting the key when value is empty, and
// stamps the modification time.
func (o Options) Set(name, value string) {
	if value == "" {
		delete(o, name)
	} else {
		o[name] = value
	}
	o[OptTimestamp] = strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// SetBool stores a boolean option the way Set does.
func (o Options) SetBool(name string, v bool) {
	if v {
		o.Set(name, "Y")
		return
	}
	o.Set(name, "")
}

// Clone returns a shallow copy.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
