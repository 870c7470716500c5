package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	// MinCapacity and MaxCapacity bound the output buffer.
	MinCapacity = 1 << 20
	MaxCapacity = 64 << 20

	expansion = 30
)

// ErrEmpty is returned for an empty input.
var ErrEmpty = errors.New("compress: empty input")

// Capacity returns the output capacity allowed for n compressed bytes:
// clamp(30n, 1 MiB, 64 MiB).
func Capacity(n int) int {
	c := expansion * n
	if c > MaxCapacity || c < 0 {
		return MaxCapacity
	}
	if c < MinCapacity {
		return MinCapacity
	}
	return c
}

var (
	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

func sharedDecoder() (*zstd.Decoder, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxCapacity),
			zstd.WithDecodeAllCapLimit(true),
		)
	})
	return decoder, decoderErr
}

// Decompress inflates src. Output larger than Capacity(len(src)) is an
// error.
func Decompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrEmpty
	}
	dec, err := sharedDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(src, make([]byte, 0, Capacity(len(src))))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
