// Package compress provides transparent value compression for the binding
// layer. Values are wrapped in a small self-describing frame (magic,
// algorithm id, original size) before they reach the engine and unwrapped on
// the way back, so the caller always sees the original bytes.
package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm IDs stored in the frame header.
const (
	AlgoNone   uint8 = 0
	AlgoLZ4    uint8 = 1
	AlgoSnappy uint8 = 2
	AlgoZSTD   uint8 = 3
)

var frameMagic = [4]byte{'C', 'M', 'P', 'R'}

// minCompressSize is the smallest value worth compressing. Smaller values
// are framed uncompressed so decoding stays uniform.
const minCompressSize = 64

var algorithmIDs = map[string]uint8{
	"none":   AlgoNone,
	"lz4":    AlgoLZ4,
	"snappy": AlgoSnappy,
	"zstd":   AlgoZSTD,
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic(fmt.Sprintf("compress: init zstd encoder: %v", err))
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("compress: init zstd decoder: %v", err))
	}
}

// Codec compresses and decompresses values with a fixed algorithm.
type Codec struct {
	algo uint8
	name string
}

// NewCodec returns a codec for the named algorithm: "none", "lz4", "snappy"
// or "zstd".
func NewCodec(name string) (*Codec, error) {
	algo, ok := algorithmIDs[name]
	if !ok {
		return nil, fmt.Errorf("compress: unknown algorithm %q", name)
	}
	return &Codec{algo: algo, name: name}, nil
}

// Name returns the codec's algorithm name.
func (c *Codec) Name() string { return c.name }

// Encode frames and compresses value. Values below the size threshold, and
// values the algorithm cannot shrink, are framed uncompressed.
func (c *Codec) Encode(value []byte) ([]byte, error) {
	if c.algo == AlgoNone || len(value) < minCompressSize {
		return frame(AlgoNone, len(value), value), nil
	}

	switch c.algo {
	case AlgoSnappy:
		compressed := snappy.Encode(nil, value)
		if len(compressed) >= len(value) {
			return frame(AlgoNone, len(value), value), nil
		}
		return frame(AlgoSnappy, len(value), compressed), nil

	case AlgoLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(value)))
		n, err := lz4.CompressBlock(value, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4 encode: %w", err)
		}
		if n == 0 || n >= len(value) {
			// Incompressible input.
			return frame(AlgoNone, len(value), value), nil
		}
		return frame(AlgoLZ4, len(value), dst[:n]), nil

	case AlgoZSTD:
		compressed := zstdEncoder.EncodeAll(value, nil)
		if len(compressed) >= len(value) {
			return frame(AlgoNone, len(value), value), nil
		}
		return frame(AlgoZSTD, len(value), compressed), nil

	default:
		return nil, fmt.Errorf("compress: unknown algorithm id %d", c.algo)
	}
}

// Decode unwraps a framed value. Input without a frame header is returned
// unchanged, so stores written before compression was enabled stay readable.
func (c *Codec) Decode(value []byte) ([]byte, error) {
	algo, origSize, payload, ok := unframe(value)
	if !ok {
		return value, nil
	}

	switch algo {
	case AlgoNone:
		return payload, nil

	case AlgoSnappy:
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("compress: snappy decode: %w", err)
		}
		return decoded, nil

	case AlgoLZ4:
		dst := make([]byte, origSize)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4 decode: %w", err)
		}
		return dst[:n], nil

	case AlgoZSTD:
		decoded, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd decode: %w", err)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("compress: unknown algorithm id %d", algo)
	}
}

// frame prepends the header: magic, algorithm id, uvarint original size.
func frame(algo uint8, origSize int, payload []byte) []byte {
	header := make([]byte, 0, len(frameMagic)+1+binary.MaxVarintLen64)
	header = append(header, frameMagic[:]...)
	header = append(header, algo)
	header = binary.AppendUvarint(header, uint64(origSize))

	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

func unframe(value []byte) (algo uint8, origSize int, payload []byte, ok bool) {
	if len(value) < len(frameMagic)+2 {
		return 0, 0, nil, false
	}
	if value[0] != frameMagic[0] || value[1] != frameMagic[1] ||
		value[2] != frameMagic[2] || value[3] != frameMagic[3] {
		return 0, 0, nil, false
	}
	algo = value[4]
	size, n := binary.Uvarint(value[5:])
	if n <= 0 {
		return 0, 0, nil, false
	}
	return algo, int(size), value[5+n:], true
}
