package pb

import "google.golang.org/protobuf/encoding/protowire"

// Payload is one member of the Message union.
type Payload interface {
	messageField() protowire.Number
	marshal() []byte
}

// Message is the session-schema envelope.
type Message struct {
	Payload Payload
}

const (
	msgSignedID       protowire.Number = 3
	msgPublicKey      protowire.Number = 4
	msgTestDelay      protowire.Number = 5
	msgVideoFrame     protowire.Number = 6
	msgLoginRequest   protowire.Number = 7
	msgLoginResponse  protowire.Number = 8
	msgHash           protowire.Number = 9
	msgMouseEvent     protowire.Number = 10
	msgAudioFrame     protowire.Number = 11
	msgCursorData     protowire.Number = 12
	msgCursorPosition protowire.Number = 13
	msgCursorID       protowire.Number = 14
	msgKeyEvent       protowire.Number = 15
	msgClipboard      protowire.Number = 16
	msgMisc           protowire.Number = 19
	msgAuth2FA        protowire.Number = 27
)

// NewMessage wraps p in an envelope.
func NewMessage(p Payload) *Message { return &Message{Payload: p} }

// Marshal encodes the envelope.
func (m *Message) Marshal() ([]byte, error) {
	if m.Payload == nil {
		return nil, ErrEmptyEnvelope
	}
	if id, ok := m.Payload.(CursorID); ok {
		return appendUvarintAlways(nil, msgCursorID, uint64(id)), nil
	}
	return appendMessage(nil, m.Payload.messageField(), m.Payload.marshal()), nil
}

// UnmarshalMessage decodes a session-schema frame. Members this client does
// not consume leave Payload nil.
func UnmarshalMessage(b []byte) (*Message, error) {
	m := &Message{}
	err := parse(b, func(f field) error {
		var (
			p   Payload
			err error
		)
		switch f.num {
		case msgSignedID:
			p, err = decodeInto(f, &SignedID{})
		case msgPublicKey:
			p, err = decodeInto(f, &PublicKey{})
		case msgTestDelay:
			p, err = decodeInto(f, &TestDelay{})
		case msgVideoFrame:
			p, err = decodeInto(f, &VideoFrame{})
		case msgLoginRequest:
			p, err = decodeInto(f, &LoginRequest{})
		case msgLoginResponse:
			p, err = decodeInto(f, &LoginResponse{})
		case msgHash:
			p, err = decodeInto(f, &Hash{})
		case msgMouseEvent:
			p, err = decodeInto(f, &MouseEvent{})
		case msgAudioFrame:
			p, err = decodeInto(f, &AudioFrame{})
		case msgCursorData:
			p, err = decodeInto(f, &CursorData{})
		case msgCursorPosition:
			p, err = decodeInto(f, &CursorPosition{})
		case msgCursorID:
			var v uint64
			v, err = f.varint()
			p = CursorID(v)
		case msgKeyEvent:
			p, err = decodeInto(f, &KeyEvent{})
		case msgClipboard:
			p, err = decodeInto(f, &Clipboard{})
		case msgMisc:
			p, err = decodeInto(f, &Misc{})
		case msgAuth2FA:
			p, err = decodeInto(f, &Auth2FA{})
		default:
			return nil
		}
		if err != nil {
			return err
		}
		m.Payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// IdPk binds an id to a public key. It travels signed, never bare.
type IdPk struct {
	ID string
	Pk []byte
}

// Marshal encodes the record.
func (p *IdPk) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, p.ID)
	b = appendBytes(b, 2, p.Pk)
	return b
}

// UnmarshalIdPk decodes an IdPk record.
func UnmarshalIdPk(b []byte) (*IdPk, error) {
	p := &IdPk{}
	err := parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.ID, err = f.str()
		case 2:
			p.Pk, err = f.bytes()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SignedID carries a signed IdPk from the host.
type SignedID struct {
	ID []byte
}

func (*SignedID) messageField() protowire.Number { return msgSignedID }
func (s *SignedID) marshal() []byte              { return appendBytes(nil, 1, s.ID) }

func (s *SignedID) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		if f.num == 1 {
			s.ID, err = f.bytes()
		}
		return err
	})
}

// PublicKey carries the client's box key and the sealed session key. An
// empty PublicKey declines encryption.
type PublicKey struct {
	AsymmetricValue []byte
	SymmetricValue  []byte
}

func (*PublicKey) messageField() protowire.Number { return msgPublicKey }

func (k *PublicKey) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, k.AsymmetricValue)
	b = appendBytes(b, 2, k.SymmetricValue)
	return b
}

func (k *PublicKey) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			k.AsymmetricValue, err = f.bytes()
		case 2:
			k.SymmetricValue, err = f.bytes()
		}
		return err
	})
}

// TestDelay is the host's latency probe.
type TestDelay struct {
	Time          int64
	FromClient    bool
	LastDelay     uint32
	TargetBitrate uint32
}

func (*TestDelay) messageField() protowire.Number { return msgTestDelay }

func (t *TestDelay) marshal() []byte {
	var b []byte
	b = appendInt64(b, 1, t.Time)
	b = appendBool(b, 2, t.FromClient)
	b = appendUvarint(b, 3, uint64(t.LastDelay))
	b = appendUvarint(b, 4, uint64(t.TargetBitrate))
	return b
}

func (t *TestDelay) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var (
			v   uint64
			err error
		)
		switch f.num {
		case 1:
			v, err = f.varint()
			t.Time = int64(v)
		case 2:
			t.FromClient, err = f.boolean()
		case 3:
			v, err = f.varint()
			t.LastDelay = uint32(v)
		case 4:
			v, err = f.varint()
			t.TargetBitrate = uint32(v)
		}
		return err
	})
}

// Hash is the host's login challenge.
type Hash struct {
	Salt      string
	Challenge string
}

func (*Hash) messageField() protowire.Number { return msgHash }

func (h *Hash) marshal() []byte {
	var b []byte
	b = appendString(b, 1, h.Salt)
	b = appendString(b, 2, h.Challenge)
	return b
}

func (h *Hash) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			h.Salt, err = f.str()
		case 2:
			h.Challenge, err = f.str()
		}
		return err
	})
}

// CursorID selects a previously delivered cursor image.
type CursorID uint64

func (CursorID) messageField() protowire.Number { return msgCursorID }
func (CursorID) marshal() []byte                { return nil }

// CursorData is a cursor image. Colors are zstd-compressed.
type CursorData struct {
	ID     uint64
	HotX   int32
	HotY   int32
	Width  int32
	Height int32
	Colors []byte
}

func (*CursorData) messageField() protowire.Number { return msgCursorData }

func (c *CursorData) marshal() []byte {
	var b []byte
	b = appendUvarint(b, 1, c.ID)
	b = appendSint32(b, 2, c.HotX)
	b = appendSint32(b, 3, c.HotY)
	b = appendInt32(b, 4, c.Width)
	b = appendInt32(b, 5, c.Height)
	b = appendBytes(b, 6, c.Colors)
	return b
}

func (c *CursorData) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			c.ID, err = f.varint()
		case 2:
			c.HotX, err = f.sint32()
		case 3:
			c.HotY, err = f.sint32()
		case 4:
			c.Width, err = f.int32()
		case 5:
			c.Height, err = f.int32()
		case 6:
			c.Colors, err = f.bytes()
		}
		return err
	})
}

// CursorPosition moves the remote cursor.
type CursorPosition struct {
	X int32
	Y int32
}

func (*CursorPosition) messageField() protowire.Number { return msgCursorPosition }

func (c *CursorPosition) marshal() []byte {
	var b []byte
	b = appendSint32(b, 1, c.X)
	b = appendSint32(b, 2, c.Y)
	return b
}

func (c *CursorPosition) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			c.X, err = f.sint32()
		case 2:
			c.Y, err = f.sint32()
		}
		return err
	})
}

// Clipboard is remote clipboard text, optionally zstd-compressed.
type Clipboard struct {
	Compress bool
	Content  []byte
}

func (*Clipboard) messageField() protowire.Number { return msgClipboard }

func (c *Clipboard) marshal() []byte {
	var b []byte
	b = appendBool(b, 1, c.Compress)
	b = appendBytes(b, 2, c.Content)
	return b
}

func (c *Clipboard) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			c.Compress, err = f.boolean()
		case 2:
			c.Content, err = f.bytes()
		}
		return err
	})
}

// AudioFrame is one chunk of encoded audio.
type AudioFrame struct {
	Data []byte
}

func (*AudioFrame) messageField() protowire.Number { return msgAudioFrame }
func (a *AudioFrame) marshal() []byte              { return appendBytes(nil, 1, a.Data) }

func (a *AudioFrame) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		if f.num == 1 {
			a.Data, err = f.bytes()
		}
		return err
	})
}

// Auth2FA submits a second-factor code.
type Auth2FA struct {
	Code string
}

func (*Auth2FA) messageField() protowire.Number { return msgAuth2FA }
func (a *Auth2FA) marshal() []byte              { return appendString(nil, 1, a.Code) }

func (a *Auth2FA) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		if f.num == 1 {
			a.Code, err = f.str()
		}
		return err
	})
}
