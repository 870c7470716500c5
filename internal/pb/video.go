package pb

import "google.golang.org/protobuf/encoding/protowire"

// Codec names the encoding of a VideoFrame batch.
type Codec string

const (
	CodecVP9  Codec = "vp9"
	CodecVP8  Codec = "vp8"
	CodecAV1  Codec = "av1"
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
	CodecRGB  Codec = "rgb"
	CodecYUV  Codec = "yuv"
)

var codecFields = map[protowire.Number]Codec{
	6:  CodecVP9,
	7:  CodecRGB,
	8:  CodecYUV,
	10: CodecH264,
	11: CodecH265,
	12: CodecVP8,
	13: CodecAV1,
}

func codecField(c Codec) protowire.Number {
	for num, v := range codecFields {
		if v == c {
			return num
		}
	}
	return 0
}

// EncodedVideoFrame is one independently decodable unit.
type EncodedVideoFrame struct {
	Data []byte
	Key  bool
	Pts  int64
}

func (e *EncodedVideoFrame) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, e.Data)
	b = appendBool(b, 2, e.Key)
	b = appendInt64(b, 3, e.Pts)
	return b
}

func (e *EncodedVideoFrame) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			e.Data, err = f.bytes()
		case 2:
			e.Key, err = f.boolean()
		case 3:
			var v uint64
			v, err = f.varint()
			e.Pts = int64(v)
		}
		return err
	})
}

// VideoFrame is a batch of encoded units for one display. Raw RGB/YUV
// frames decode with a Codec but no Frames.
type VideoFrame struct {
	Codec   Codec
	Frames  []EncodedVideoFrame
	Display int32
}

func (*VideoFrame) messageField() protowire.Number { return msgVideoFrame }

func (v *VideoFrame) marshal() []byte {
	var b []byte
	if num := codecField(v.Codec); num != 0 && v.Codec != CodecRGB && v.Codec != CodecYUV {
		var inner []byte
		for i := range v.Frames {
			inner = appendMessage(inner, 1, v.Frames[i].marshal())
		}
		b = appendMessage(b, num, inner)
	}
	b = appendInt32(b, 14, v.Display)
	return b
}

func (v *VideoFrame) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		if f.num == 14 {
			var err error
			v.Display, err = f.int32()
			return err
		}
		codec, ok := codecFields[f.num]
		if !ok {
			return nil
		}
		v.Codec = codec
		if codec == CodecRGB || codec == CodecYUV {
			return nil
		}
		inner, err := f.bytes()
		if err != nil {
			return err
		}
		return parse(inner, func(ff field) error {
			if ff.num != 1 {
				return nil
			}
			frame, err := decodeInto(ff, &EncodedVideoFrame{})
			if err != nil {
				return err
			}
			v.Frames = append(v.Frames, *frame)
			return nil
		})
	})
}
