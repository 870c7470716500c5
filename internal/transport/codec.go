package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLen is the largest payload the header codec can describe.
const MaxFrameLen = 1<<30 - 1

// AppendHeader appends the variable-length header for an n-byte payload.
// The low two bits of the first byte hold the header length minus one.
func AppendHeader(b []byte, n int) []byte {
	v := uint32(n) << 2
	switch {
	case n <= 0x3F:
		return append(b, byte(v))
	case n <= 0x3FFF:
		return binary.LittleEndian.AppendUint16(b, uint16(v|1))
	case n <= 0x3FFFFF:
		v |= 2
		return append(b, byte(v), byte(v>>8), byte(v>>16))
	default:
		return binary.LittleEndian.AppendUint32(b, v|3)
	}
}

// EncodeFrame returns header plus payload.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	out := AppendHeader(make([]byte, 0, len(payload)+4), len(payload))
	return append(out, payload...), nil
}

// ReadFrame reads one header-prefixed frame from r. Frames longer than max
// are rejected before the payload is read; max <= 0 means MaxFrameLen.
func ReadFrame(r io.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = MaxFrameLen
	}
	var head [4]byte
	if _, err := io.ReadFull(r, head[:1]); err != nil {
		return nil, err
	}
	headLen := int(head[0]&3) + 1
	if headLen > 1 {
		if _, err := io.ReadFull(r, head[1:headLen]); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
	}
	n := int(binary.LittleEndian.Uint32(head[:]) >> 2)
	if n > max {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}
