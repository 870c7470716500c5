package pb

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// ConnType is the kind of session requested from the rendezvous server.
type ConnType int32

const (
	ConnTypeDefault      ConnType = 0
	ConnTypeFileTransfer ConnType = 1
	ConnTypePortForward  ConnType = 2
	ConnTypeRDP          ConnType = 3
)

// NatType is the NAT classification reported to the rendezvous server.
type NatType int32

const (
	NatUnknown    NatType = 0
	NatAsymmetric NatType = 1
	NatSymmetric  NatType = 2
)

// PunchHoleFailure is the refusal reason in a PunchHoleResponse.
type PunchHoleFailure int32

const (
	FailureIDNotExist      PunchHoleFailure = 0
	FailureOffline         PunchHoleFailure = 2
	FailureLicenseMismatch PunchHoleFailure = 3
	FailureLicenseOveruse  PunchHoleFailure = 4
)

// RendezvousPayload is one member of the RendezvousMessage union.
type RendezvousPayload interface {
	rendezvousField() protowire.Number
	marshal() []byte
}

// RendezvousMessage is the negotiation-schema envelope.
type RendezvousMessage struct {
	Payload RendezvousPayload
}

const (
	rvPunchHoleRequest  protowire.Number = 8
	rvPunchHoleResponse protowire.Number = 11
	rvRequestRelay      protowire.Number = 18
	rvRelayResponse     protowire.Number = 19
)

// ErrEmptyEnvelope is returned when encoding an envelope with no payload.
var ErrEmptyEnvelope = errors.New("pb: envelope has no payload")

// Marshal encodes the envelope.
func (m *RendezvousMessage) Marshal() ([]byte, error) {
	if m.Payload == nil {
		return nil, ErrEmptyEnvelope
	}
	return appendMessage(nil, m.Payload.rendezvousField(), m.Payload.marshal()), nil
}

// UnmarshalRendezvous decodes a negotiation-schema frame. Members this client
// does not consume leave Payload nil.
func UnmarshalRendezvous(b []byte) (*RendezvousMessage, error) {
	m := &RendezvousMessage{}
	err := parse(b, func(f field) error {
		var (
			p   RendezvousPayload
			err error
		)
		switch f.num {
		case rvPunchHoleRequest:
			p, err = decodeInto(f, &PunchHoleRequest{})
		case rvPunchHoleResponse:
			p, err = decodeInto(f, &PunchHoleResponse{})
		case rvRequestRelay:
			p, err = decodeInto(f, &RequestRelay{})
		case rvRelayResponse:
			p, err = decodeInto(f, &RelayResponse{})
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

type unmarshaler interface {
	unmarshal(b []byte) error
}

// decodeInto decodes an embedded message field into dst and returns dst.
func decodeInto[T unmarshaler](f field, dst T) (T, error) {
	b, err := f.bytes()
	if err != nil {
		return dst, err
	}
	return dst, dst.unmarshal(b)
}

// PunchHoleRequest asks the rendezvous server to connect us to ID.
type PunchHoleRequest struct {
	ID         string
	NatType    NatType
	LicenceKey string
	ConnType   ConnType
	Token      string
}

func (*PunchHoleRequest) rendezvousField() protowire.Number { return rvPunchHoleRequest }

func (p *PunchHoleRequest) marshal() []byte {
	var b []byte
	b = appendString(b, 1, p.ID)
	b = appendInt32(b, 2, int32(p.NatType))
	b = appendString(b, 3, p.LicenceKey)
	b = appendInt32(b, 4, int32(p.ConnType))
	b = appendString(b, 5, p.Token)
	return b
}

func (p *PunchHoleRequest) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.ID, err = f.str()
		case 2:
			var v int32
			v, err = f.int32()
			p.NatType = NatType(v)
		case 3:
			p.LicenceKey, err = f.str()
		case 4:
			var v int32
			v, err = f.int32()
			p.ConnType = ConnType(v)
		case 5:
			p.Token, err = f.str()
		}
		return err
	})
}

// PunchHoleResponse is the rendezvous server's answer when it cannot or will
// not arrange the connection.
type PunchHoleResponse struct {
	SocketAddr   []byte
	Pk           []byte
	Failure      PunchHoleFailure
	RelayServer  string
	NatType      NatType
	IsLocal      bool
	OtherFailure string
}

func (*PunchHoleResponse) rendezvousField() protowire.Number { return rvPunchHoleResponse }

func (p *PunchHoleResponse) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, p.SocketAddr)
	b = appendBytes(b, 2, p.Pk)
	b = appendInt32(b, 3, int32(p.Failure))
	b = appendString(b, 4, p.RelayServer)
	if p.IsLocal {
		b = appendBoolAlways(b, 6, true)
	} else {
		b = appendInt32(b, 5, int32(p.NatType))
	}
	b = appendString(b, 7, p.OtherFailure)
	return b
}

func (p *PunchHoleResponse) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.SocketAddr, err = f.bytes()
		case 2:
			p.Pk, err = f.bytes()
		case 3:
			var v int32
			v, err = f.int32()
			p.Failure = PunchHoleFailure(v)
		case 4:
			p.RelayServer, err = f.str()
		case 5:
			var v int32
			v, err = f.int32()
			p.NatType = NatType(v)
		case 6:
			p.IsLocal, err = f.boolean()
		case 7:
			p.OtherFailure, err = f.str()
		}
		return err
	})
}

// RequestRelay binds a relay connection to the session identified by UUID.
type RequestRelay struct {
	ID          string
	UUID        string
	SocketAddr  []byte
	RelayServer string
	Secure      bool
	LicenceKey  string
	ConnType    ConnType
	Token       string
}

func (*RequestRelay) rendezvousField() protowire.Number { return rvRequestRelay }

func (r *RequestRelay) marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendString(b, 2, r.UUID)
	b = appendBytes(b, 3, r.SocketAddr)
	b = appendString(b, 4, r.RelayServer)
	b = appendBool(b, 5, r.Secure)
	b = appendString(b, 6, r.LicenceKey)
	b = appendInt32(b, 7, int32(r.ConnType))
	b = appendString(b, 8, r.Token)
	return b
}

func (r *RequestRelay) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.ID, err = f.str()
		case 2:
			r.UUID, err = f.str()
		case 3:
			r.SocketAddr, err = f.bytes()
		case 4:
			r.RelayServer, err = f.str()
		case 5:
			r.Secure, err = f.boolean()
		case 6:
			r.LicenceKey, err = f.str()
		case 7:
			var v int32
			v, err = f.int32()
			r.ConnType = ConnType(v)
		case 8:
			r.Token, err = f.str()
		}
		return err
	})
}

// RelayResponse tells the client which relay to use and carries the peer's
// signed key.
type RelayResponse struct {
	SocketAddr   []byte
	UUID         string
	RelayServer  string
	ID           string
	Pk           []byte
	RefuseReason string
	Version      string
}

func (*RelayResponse) rendezvousField() protowire.Number { return rvRelayResponse }

func (r *RelayResponse) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, r.SocketAddr)
	b = appendString(b, 2, r.UUID)
	b = appendString(b, 3, r.RelayServer)
	if len(r.Pk) > 0 {
		b = appendBytes(b, 5, r.Pk)
	} else {
		b = appendString(b, 4, r.ID)
	}
	b = appendString(b, 6, r.RefuseReason)
	b = appendString(b, 7, r.Version)
	return b
}

func (r *RelayResponse) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.SocketAddr, err = f.bytes()
		case 2:
			r.UUID, err = f.str()
		case 3:
			r.RelayServer, err = f.str()
		case 4:
			r.ID, err = f.str()
		case 5:
			r.Pk, err = f.bytes()
		case 6:
			r.RefuseReason, err = f.str()
		case 7:
			r.Version, err = f.str()
		}
		return err
	})
}
