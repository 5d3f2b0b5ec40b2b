package bitio

import (
	"testing"

	"github.com/kiomusic/ymmplayer/pkg/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestReadBitsRoundTrip(t *testing.T) {
	// 0xA5 0x3C == 1010_0101 0011_1100
	r := NewReader(device.NewMemSource([]byte{0xA5, 0x3C}))

	v, err := r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b1010), v)

	v, err = r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b0101), v)

	v, err = r.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3C), v)
}

func TestReadBitsAcrossByteBoundary(t *testing.T) {
	r := NewReader(device.NewMemSource([]byte{0b11110000, 0b00001111}))
	v, err := r.ReadBits(12)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b111100000000), v)
}

func TestReadNumberKnownValues(t *testing.T) {
	// k=1 encodes as the single bit "1".
	r := NewReader(device.NewMemSource([]byte{0b10000000}))
	v, err := r.ReadNumber()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	// k=5 (binary 101) encodes as 2 leading zeros then "101": "00101..."
	r2 := NewReader(device.NewMemSource([]byte{0b00101000}))
	v2, err := r2.ReadNumber()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), v2)
}

func TestReadNumberRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		k := rapid.Uint32Range(1, 1<<20).Draw(tt, "k")
		bits := eliasGammaLikeEncode(k)
		r := NewReader(device.NewMemSource(packBits(bits)))
		got, err := r.ReadNumber()
		require.NoError(tt, err)
		assert.Equal(tt, k, got)
	})
}

// eliasGammaLikeEncode produces the bit sequence ReadNumber expects: for a
// value k whose binary representation (no leading zero) is `len(k)` bits
// wide, that's `len(k)-1` leading zero bits followed by the `len(k)`-bit
// binary representation of k (including its leading 1).
func eliasGammaLikeEncode(k uint32) []bool {
	var bin []bool
	for b := 31; b >= 0; b-- {
		if (k>>uint(b))&1 == 1 {
			for i := b; i >= 0; i-- {
				bin = append(bin, (k>>uint(i))&1 == 1)
			}
			break
		}
	}
	leading := make([]bool, len(bin)-1)
	return append(leading, bin...)
}

func packBits(bits []bool) []byte {
	// pad to a whole number of bytes with trailing zero bits (ReadBits only
	// consumes exactly as many bits as requested, so trailing padding never
	// gets inspected for a well-formed encoding).
	n := (len(bits) + 7) / 8 * 8
	padded := make([]bool, n)
	copy(padded, bits)

	out := make([]byte, n/8)
	for i, b := range padded {
		if b {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}
