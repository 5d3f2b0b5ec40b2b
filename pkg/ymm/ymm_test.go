package ymm

import (
	"encoding/binary"
	"testing"

	"github.com/kiomusic/ymmplayer/pkg/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ymmBitWriter is the test-only MSB-first bit packer used to build fixture
// bitstreams for the ring/frame decoders.
type ymmBitWriter struct {
	out  []byte
	cur  byte
	nbit uint8
}

func (w *ymmBitWriter) writeBits(v uint32, n uint8) {
	for i := int(n) - 1; i >= 0; i-- {
		bit := byte((v >> uint(i)) & 1)
		w.cur = (w.cur << 1) | bit
		w.nbit++
		if w.nbit == 8 {
			w.out = append(w.out, w.cur)
			w.cur = 0
			w.nbit = 0
		}
	}
}

// writeNumber encodes k using the same unary-zeros + binary scheme ReadNumber expects.
func (w *ymmBitWriter) writeNumber(k uint32) {
	nbits := 0
	for b := uint32(1); b <= k; b <<= 1 {
		nbits++
	}
	for i := 0; i < nbits-1; i++ {
		w.writeBits(0, 1)
	}
	w.writeBits(k, uint8(nbits))
}

func (w *ymmBitWriter) bytes() []byte {
	if w.nbit > 0 {
		w.cur <<= (8 - w.nbit)
		w.out = append(w.out, w.cur)
		w.cur, w.nbit = 0, 0
	}
	return w.out
}

func buildHeader(numFrames, loopFrame, rbusz uint32, bufferBits uint8) []byte {
	buf := make([]byte, 20)
	copy(buf[0:4], "ymm!")
	buf[4] = 2
	buf[5] = bufferBits
	buf[6] = byte(int8(50))
	buf[7] = RegistersPerFrame
	binary.LittleEndian.PutUint32(buf[8:12], numFrames)
	binary.LittleEndian.PutUint32(buf[12:16], loopFrame)
	binary.LittleEndian.PutUint32(buf[16:20], 2000000)

	buf = append(buf, 0, 0, 0) // empty title/author/comment
	rb := make([]byte, 4)
	binary.LittleEndian.PutUint32(rb, rbusz)
	buf = append(buf, rb...)
	return buf
}

// allRawRbusz builds an rbusz value assigning ring-size code 2 to every
// register. With 16 registers, code 2 means each ring consumes
// 2^(bufferBits-4) cells, and 16 * 2^(bufferBits-4) == 2^bufferBits exactly,
// satisfying the "total consumed equals the pool size" invariant regardless
// of bufferBits. Used by tests that only need raw value+count encoding with
// no active backrefs.
func allRawRbusz() uint32 {
	var v uint32
	for r := 0; r < RegistersPerFrame; r++ {
		v |= uint32(2) << (2 * r)
	}
	return v
}

func TestParseHeaderRejectsBadVariant(t *testing.T) {
	buf := buildHeader(4, 2, allRawRbusz(), 10)
	buf[4] = 1
	_, err := ParseHeader(device.NewMemSource(buf))
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

func TestParseHeaderRejectsBadBufferBits(t *testing.T) {
	buf := buildHeader(4, 2, allRawRbusz(), 7)
	_, err := ParseHeader(device.NewMemSource(buf))
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

func TestParseHeaderRejectsLoopNotLessThanNumFrames(t *testing.T) {
	buf := buildHeader(4, 4, allRawRbusz(), 10)
	_, err := ParseHeader(device.NewMemSource(buf))
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

func TestFrameDecoderRejectsBadRingAssignment(t *testing.T) {
	// bufferBits=8 means pool size 2^8=256 cells; rbusz=0 assigns nothing,
	// leaving the pool entirely unconsumed -> illegal buffer assignment.
	buf := buildHeader(4, 2, 0, 8)
	_, err := NewFrameDecoder(device.NewMemSource(buf))
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

// encodeRawFrame encodes one frame where every register uses the literal/RLE
// tag with the given value and count=1 (no backrefs), matching the "ymm
// single-frame playback" scenario.
func encodeRawFrame(w *ymmBitWriter, values [RegistersPerFrame]uint8) {
	for r := 0; r < RegistersPerFrame; r++ {
		w.writeBits(0, 1) // literal/RLE tag
		w.writeBits(uint32(values[r]), aybits[r])
		w.writeNumber(1) // count = 1
	}
}

func TestSingleFramePlayback(t *testing.T) {
	hdr := buildHeader(1, 0, allRawRbusz(), 8)
	w := &ymmBitWriter{}
	var values [RegistersPerFrame]uint8
	for r := range values {
		// keep each value within its register's raw width
		values[r] = uint8((r+1)*3) & uint8(uint32(1)<<aybits[r]-1)
	}
	encodeRawFrame(w, values)

	file := append(hdr, w.bytes()...)
	dec, err := NewFrameDecoder(device.NewMemSource(file))
	require.NoError(t, err)

	var out [RegistersPerFrame]uint8
	require.NoError(t, dec.ReadFrame(&out))
	assert.Equal(t, values, out)
}

func TestFrameDecoderDeterminism(t *testing.T) {
	hdr := buildHeader(2, 0, allRawRbusz(), 8)
	w := &ymmBitWriter{}
	var frame1, frame2 [RegistersPerFrame]uint8
	for r := range frame1 {
		frame1[r] = uint8(r)
		frame2[r] = uint8(15 - r)
	}
	encodeRawFrame(w, frame1)
	encodeRawFrame(w, frame2)
	file := append(hdr, w.bytes()...)

	run := func() ([RegistersPerFrame]uint8, [RegistersPerFrame]uint8) {
		dec, err := NewFrameDecoder(device.NewMemSource(append([]byte(nil), file...)))
		require.NoError(t, err)
		var a, b [RegistersPerFrame]uint8
		require.NoError(t, dec.ReadFrame(&a))
		require.NoError(t, dec.ReadFrame(&b))
		return a, b
	}

	a1, b1 := run()
	a2, b2 := run()
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestLoopRestartEquivalence(t *testing.T) {
	hdr := buildHeader(4, 2, allRawRbusz(), 8)
	w := &ymmBitWriter{}
	frames := make([][RegistersPerFrame]uint8, 4)
	for i := range frames {
		for r := range frames[i] {
			// keep each value within its register's raw width
			frames[i][r] = uint8(i*16+r) & uint8(uint32(1)<<aybits[r]-1)
		}
		encodeRawFrame(w, frames[i])
	}
	file := append(hdr, w.bytes()...)

	dec, err := NewFrameDecoder(device.NewMemSource(file))
	require.NoError(t, err)

	var out [RegistersPerFrame]uint8
	for i := 0; i < 4; i++ {
		require.NoError(t, dec.ReadFrame(&out))
		assert.Equal(t, frames[i], out, "frame %d", i)
	}

	require.NoError(t, dec.RestartAtLoop())
	for i := 2; i < 4; i++ {
		require.NoError(t, dec.ReadFrame(&out))
		assert.Equal(t, frames[i], out, "repeat frame %d", i)
	}
}
