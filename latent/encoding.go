package latent

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/evolatent/internal/compress"
)

// Encoding layout (little endian):
//
//	magic "EVLT" | version u8 | compression u8 | reserved u16 |
//	N u32 | C u32 | H u32 | W u32 | compressed block of float32 data
const (
	magic         = "EVLT"
	formatVersion = 1
	headerLen     = 4 + 1 + 1 + 2 + 16
)

// Compression selects the payload compression of encoded latents.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(name string) (Compression, error) {
	return compress.ParseType(name)
}

// Encode serializes v in the self-describing latent format.
func Encode(v Vector, c Compression) ([]byte, error) {
	if err := v.Shape.Validate(); err != nil {
		return nil, err
	}
	if len(v.Data) != v.Shape.Len() {
		return nil, fmt.Errorf("latent: data length %d does not match shape %v", len(v.Data), v.Shape)
	}

	raw := make([]byte, 4*len(v.Data))
	for i, f := range v.Data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(f))
	}
	block, err := compress.Encode(raw, c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerLen, headerLen+len(block))
	copy(out, magic)
	out[4] = formatVersion
	out[5] = byte(c)
	binary.LittleEndian.PutUint32(out[8:], uint32(v.Shape.N))
	binary.LittleEndian.PutUint32(out[12:], uint32(v.Shape.C))
	binary.LittleEndian.PutUint32(out[16:], uint32(v.Shape.H))
	binary.LittleEndian.PutUint32(out[20:], uint32(v.Shape.W))
	return append(out, block...), nil
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (Vector, error) {
	if len(data) < headerLen || string(data[:4]) != magic {
		return Vector{}, ErrInvalidEncoding
	}
	if data[4] != formatVersion {
		return Vector{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidEncoding, data[4])
	}
	shape := Shape{
		N: int(binary.LittleEndian.Uint32(data[8:])),
		C: int(binary.LittleEndian.Uint32(data[12:])),
		H: int(binary.LittleEndian.Uint32(data[16:])),
		W: int(binary.LittleEndian.Uint32(data[20:])),
	}
	if err := shape.Validate(); err != nil {
		return Vector{}, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}

	raw, err := compress.Decode(data[headerLen:], compress.Type(data[5]))
	if err != nil {
		return Vector{}, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	if len(raw) != 4*shape.Len() {
		return Vector{}, fmt.Errorf("%w: payload has %d bytes, shape %v needs %d", ErrInvalidEncoding, len(raw), shape, 4*shape.Len())
	}

	v := Zeros(shape)
	for i := range v.Data {
		v.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return v, nil
}
