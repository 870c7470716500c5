package pb

import "google.golang.org/protobuf/encoding/protowire"

// MiscPayload is one member of the Misc union.
type MiscPayload interface {
	miscField() protowire.Number
	marshal() []byte
}

// Misc carries control signalling in both directions.
type Misc struct {
	Payload MiscPayload
}

// NewMisc wraps p in a Misc envelope message.
func NewMisc(p MiscPayload) *Message { return NewMessage(&Misc{Payload: p}) }

const (
	miscChatMessage         protowire.Number = 4
	miscSwitchDisplay       protowire.Number = 5
	miscPermissionInfo      protowire.Number = 6
	miscOption              protowire.Number = 7
	miscAudioFormat         protowire.Number = 8
	miscCloseReason         protowire.Number = 9
	miscRefreshVideo        protowire.Number = 10
	miscVideoReceived       protowire.Number = 12
	miscRestartRemoteDevice protowire.Number = 14
	miscCaptureDisplays     protowire.Number = 30
)

func (*Misc) messageField() protowire.Number { return msgMisc }

func (m *Misc) marshal() []byte {
	switch p := m.Payload.(type) {
	case nil:
		return nil
	case CloseReason:
		return appendStringAlways(nil, miscCloseReason, string(p))
	case RefreshVideo:
		return appendBoolAlways(nil, miscRefreshVideo, bool(p))
	case VideoReceived:
		return appendBoolAlways(nil, miscVideoReceived, bool(p))
	case RestartRemoteDevice:
		return appendBoolAlways(nil, miscRestartRemoteDevice, bool(p))
	default:
		return appendMessage(nil, p.miscField(), p.marshal())
	}
}

func (m *Misc) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var (
			p   MiscPayload
			err error
		)
		switch f.num {
		case miscChatMessage:
			p, err = decodeInto(f, &ChatMessage{})
		case miscSwitchDisplay:
			p, err = decodeInto(f, &SwitchDisplay{})
		case miscPermissionInfo:
			p, err = decodeInto(f, &PermissionInfo{})
		case miscOption:
			p, err = decodeInto(f, &OptionMessage{})
		case miscAudioFormat:
			p, err = decodeInto(f, &AudioFormat{})
		case miscCloseReason:
			var s string
			s, err = f.str()
			p = CloseReason(s)
		case miscRefreshVideo:
			var v bool
			v, err = f.boolean()
			p = RefreshVideo(v)
		case miscVideoReceived:
			var v bool
			v, err = f.boolean()
			p = VideoReceived(v)
		case miscRestartRemoteDevice:
			var v bool
			v, err = f.boolean()
			p = RestartRemoteDevice(v)
		case miscCaptureDisplays:
			p, err = decodeInto(f, &CaptureDisplays{})
		default:
			return nil
		}
		if err != nil {
			return err
		}
		m.Payload = p
		return nil
	})
}

// CloseReason is the host's explanation for ending the session.
type CloseReason string

func (CloseReason) miscField() protowire.Number { return miscCloseReason }
func (CloseReason) marshal() []byte             { return nil }

// RefreshVideo asks the host for a key frame.
type RefreshVideo bool

func (RefreshVideo) miscField() protowire.Number { return miscRefreshVideo }
func (RefreshVideo) marshal() []byte             { return nil }

// VideoReceived acknowledges a decoded video batch.
type VideoReceived bool

func (VideoReceived) miscField() protowire.Number { return miscVideoReceived }
func (VideoReceived) marshal() []byte             { return nil }

// RestartRemoteDevice asks the host to reboot.
type RestartRemoteDevice bool

func (RestartRemoteDevice) miscField() protowire.Number { return miscRestartRemoteDevice }
func (RestartRemoteDevice) marshal() []byte             { return nil }

func (*OptionMessage) miscField() protowire.Number { return miscOption }

// ChatMessage is a text chat line.
type ChatMessage struct {
	Text string
}

func (*ChatMessage) miscField() protowire.Number { return miscChatMessage }
func (c *ChatMessage) marshal() []byte           { return appendString(nil, 1, c.Text) }

func (c *ChatMessage) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		if f.num == 1 {
			c.Text, err = f.str()
		}
		return err
	})
}

// SwitchDisplay announces (from the host) or requests (from the client) the
// active display.
type SwitchDisplay struct {
	Display int32
	X       int32
	Y       int32
	Width   int32
	Height  int32
}

func (*SwitchDisplay) miscField() protowire.Number { return miscSwitchDisplay }

func (s *SwitchDisplay) marshal() []byte {
	var b []byte
	b = appendInt32(b, 1, s.Display)
	b = appendSint32(b, 2, s.X)
	b = appendSint32(b, 3, s.Y)
	b = appendInt32(b, 4, s.Width)
	b = appendInt32(b, 5, s.Height)
	return b
}

func (s *SwitchDisplay) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			s.Display, err = f.int32()
		case 2:
			s.X, err = f.sint32()
		case 3:
			s.Y, err = f.sint32()
		case 4:
			s.Width, err = f.int32()
		case 5:
			s.Height, err = f.int32()
		}
		return err
	})
}

// Permission names a host-side capability.
type Permission int32

const (
	PermissionKeyboard  Permission = 0
	PermissionClipboard Permission = 2
	PermissionAudio     Permission = 3
	PermissionFile      Permission = 4
)

// PermissionInfo reports a permission change on the host.
type PermissionInfo struct {
	Permission Permission
	Enabled    bool
}

func (*PermissionInfo) miscField() protowire.Number { return miscPermissionInfo }

func (p *PermissionInfo) marshal() []byte {
	var b []byte
	b = appendInt32(b, 1, int32(p.Permission))
	b = appendBool(b, 2, p.Enabled)
	return b
}

func (p *PermissionInfo) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			p.Permission = Permission(v)
		case 2:
			p.Enabled, err = f.boolean()
		}
		return err
	})
}

// AudioFormat announces the audio stream parameters.
type AudioFormat struct {
	SampleRate uint32
	Channels   uint32
}

func (*AudioFormat) miscField() protowire.Number { return miscAudioFormat }

func (a *AudioFormat) marshal() []byte {
	var b []byte
	b = appendUvarint(b, 1, uint64(a.SampleRate))
	b = appendUvarint(b, 2, uint64(a.Channels))
	return b
}

func (a *AudioFormat) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var (
			v   uint64
			err error
		)
		switch f.num {
		case 1:
			v, err = f.varint()
			a.SampleRate = uint32(v)
		case 2:
			v, err = f.varint()
			a.Channels = uint32(v)
		}
		return err
	})
}

// CaptureDisplays changes the set of displays the host streams.
type CaptureDisplays struct {
	Add []int32
	Sub []int32
	Set []int32
}

func (*CaptureDisplays) miscField() protowire.Number { return miscCaptureDisplays }

func (c *CaptureDisplays) marshal() []byte {
	var b []byte
	b = appendPackedInt32s(b, 1, c.Add)
	b = appendPackedInt32s(b, 2, c.Sub)
	b = appendPackedInt32s(b, 3, c.Set)
	return b
}

func (c *CaptureDisplays) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			c.Add, err = f.int32s(c.Add)
		case 2:
			c.Sub, err = f.int32s(c.Sub)
		case 3:
			c.Set, err = f.int32s(c.Set)
		}
		return err
	})
}
