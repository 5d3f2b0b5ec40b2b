// Package bitio implements the MSB-first bit accumulator shared by the
// HeatShrink and .ymm decoders.
package bitio

import "github.com/kiomusic/ymmplayer/pkg/device"

// Reader pulls whole bytes from a device.ByteSource into a 32-bit
// accumulator and serves them out bit-at-a-time, MSB-first. It is a direct
// port of the original BitStream type: accu holds the low `bits` bits of
// buffered input; read_bits consumes from the high end of that window.
type Reader struct {
	src  device.ByteSource
	accu uint32
	bits uint8
}

// NewReader wraps src. The reader starts empty; ReadBits pulls bytes lazily.
func NewReader(src device.ByteSource) *Reader {
	return &Reader{src: src}
}

// Reset discards any buffered bits, used at stream restart (loop rewind).
func (r *Reader) Reset() {
	r.accu = 0
	r.bits = 0
}

// ReadBits returns the next n bits (1 <= n <= 24), MSB-first.
func (r *Reader) ReadBits(n uint8) (uint32, error) {
	for r.bits < n {
		var b [1]byte
		if _, err := r.src.Read(b[:], false); err != nil {
			return 0, err
		}
		r.accu = (r.accu << 8) | uint32(b[0])
		r.bits += 8
	}
	r.bits -= n
	rval := r.accu >> r.bits
	r.accu -= rval << r.bits
	return rval, nil
}

// ReadNumber decodes a prefix-free unary-then-binary (Elias-gamma-like)
// code: pull bytes until the accumulator is non-zero, locate the position of
// its highest set bit, and read as many bits as there were leading zero bits
// plus one (the leading 1 included) as the value. Precondition: bits < 8 and the accumulator has no set bits above
// position bits-1 (true immediately after ReadBits, by construction).
func (r *Reader) ReadNumber() (uint32, error) {
	for r.accu == 0 {
		var b [1]byte
		if _, err := r.src.Read(b[:], false); err != nil {
			return 0, err
		}
		r.accu = uint32(b[0])
		r.bits += 8
	}

	msbit := r.bits - 1
	for (r.accu>>msbit)&1 == 0 {
		msbit--
	}
	nbits := r.bits - msbit
	r.bits = msbit + 1

	return r.ReadBits(nbits)
}
