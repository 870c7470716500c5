package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded tag/value pair.
type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	b   []byte
}

func (f field) varint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, wireTypeError(f)
	}
	return f.v, nil
}

func (f field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, wireTypeError(f)
	}
	return f.b, nil
}

func (f field) str() (string, error) {
	b, err := f.bytes()
	return string(b), err
}

func (f field) boolean() (bool, error) {
	v, err := f.varint()
	return v != 0, err
}

func (f field) int32() (int32, error) {
	v, err := f.varint()
	return int32(v), err
}

func (f field) sint32() (int32, error) {
	v, err := f.varint()
	return int32(protowire.DecodeZigZag(v & 0xffffffff)), err
}

// int32s reads a repeated int32 in either packed or unpacked form.
func (f field) int32s(dst []int32) ([]int32, error) {
	switch f.typ {
	case protowire.VarintType:
		return append(dst, int32(f.v)), nil
	case protowire.BytesType:
		b := f.b
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return dst, protowire.ParseError(n)
			}
			dst = append(dst, int32(v))
			b = b[n:]
		}
		return dst, nil
	}
	return dst, wireTypeError(f)
}

func wireTypeError(f field) error {
	return fmt.Errorf("pb: field %d: unexpected wire type %d", f.num, f.typ)
}

// parse walks every field in b, skipping groups.
func parse(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.v = uint64(v)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Encoding helpers. The plain variants skip proto3 zero values; the
// oneof variants always emit.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	return appendStringAlways(b, num, s)
}

func appendStringAlways(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendUvarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	return appendUvarintAlways(b, num, v)
}

func appendUvarintAlways(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendInt32 sign-extends negative values as proto3 requires.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	return appendUvarint(b, num, uint64(int64(v)))
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	return appendUvarint(b, num, uint64(v))
}

func appendSint32(b []byte, num protowire.Number, v int32) []byte {
	return appendUvarint(b, num, protowire.EncodeZigZag(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendUvarintAlways(b, num, 1)
}

func appendBoolAlways(b []byte, num protowire.Number, v bool) []byte {
	return appendUvarintAlways(b, num, protowire.EncodeBool(v))
}

// appendMessage emits an embedded message even when it is empty, which is
// what oneof presence needs.
func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func appendPackedInt32s(b []byte, num protowire.Number, vs []int32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(int64(v)))
	}
	return appendMessage(b, num, packed)
}
