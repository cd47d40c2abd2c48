package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("latent-"), 1024)
	incompressible := make([]byte, 512)
	for i := range incompressible {
		incompressible[i] = byte(i*131 + i>>3)
	}

	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			for _, data := range [][]byte{compressible, incompressible, {}} {
				block, err := Encode(data, typ)
				require.NoError(t, err)

				out, err := Decode(block, typ)
				require.NoError(t, err)
				assert.Equal(t, len(data), len(out))
				assert.True(t, bytes.Equal(data, out))
			}
		})
	}
}

func TestEncode_ShrinksRepetitiveData(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 64*1024)
	for _, typ := range []Type{LZ4, ZSTD} {
		block, err := Encode(data, typ)
		require.NoError(t, err)
		assert.Less(t, len(block), len(data)/2, typ.String())
	}
}

func TestDecode_ShortBlock(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, None)
	assert.ErrorIs(t, err, ErrShortBlock)

	block, err := Encode([]byte("hello"), None)
	require.NoError(t, err)
	_, err = Decode(block[:len(block)-1], None)
	assert.ErrorIs(t, err, ErrShortBlock)
}

func TestParseType(t *testing.T) {
	for name, want := range map[string]Type{"": None, "none": None, "lz4": LZ4, "zstd": ZSTD} {
		got, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("brotli")
	assert.Error(t, err)
	assert.Equal(t, "Unknown(9)", Type(9).String())
}
