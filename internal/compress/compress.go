// Package compress implements the block compression used for persisted
// latent payloads.
//
// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...].
// A CompressedSize of 0 means the block is stored raw.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks raw.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// ZSTD trades speed for ratio.
	ZSTD Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ParseType maps a name ("none", "lz4", "zstd") to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("unknown compression %q", name)
	}
}

const headerSize = 8

// Gaussian noise barely compresses; blocks that do not shrink below this
// ratio are stored raw.
const maxRatio = 0.9

var (
	ErrShortBlock   = errors.New("compress: block too small")
	ErrSizeMismatch = errors.New("compress: decompressed size mismatch")
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode compresses data into a single block with header.
func Encode(data []byte, t Type) ([]byte, error) {
	var compressed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unsupported type %v", t)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*maxRatio {
		out := make([]byte, headerSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[headerSize:], data)
		return out, nil
	}

	out := make([]byte, headerSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[headerSize:], compressed)
	return out, nil
}

// Decode reverses Encode. t must match the type used for encoding.
func Decode(block []byte, t Type) ([]byte, error) {
	if len(block) < headerSize {
		return nil, ErrShortBlock
	}
	rawSize := binary.LittleEndian.Uint32(block[0:])
	compSize := binary.LittleEndian.Uint32(block[4:])
	body := block[headerSize:]

	if compSize == 0 {
		if uint32(len(body)) < rawSize {
			return nil, ErrShortBlock
		}
		return body[:rawSize], nil
	}
	if uint32(len(body)) < compSize {
		return nil, ErrShortBlock
	}
	body = body[:compSize]

	switch t {
	case LZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawSize {
			return nil, ErrSizeMismatch
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != rawSize {
			return nil, ErrSizeMismatch
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compress: compressed block with type %v", t)
	}
}
