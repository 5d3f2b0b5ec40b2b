package ymm

import (
	"github.com/kiomusic/ymmplayer/pkg/bitio"
	"github.com/kiomusic/ymmplayer/pkg/device"
)

// FrameDecoder owns the pooled ring array, the 16 per-register rings, and
// the bit reader over a .ymm bitstream, producing one 16-register frame per
// ReadFrame call.
type FrameDecoder struct {
	Header Header

	src   device.ByteSource
	bits  *bitio.Reader
	pool  []rleCell
	rings [RegistersPerFrame]RingBuffer
}

// NewFrameDecoder parses the header at src's current position and allocates
// the ring pool.
func NewFrameDecoder(src device.ByteSource) (*FrameDecoder, error) {
	h, err := ParseHeader(src)
	if err != nil {
		return nil, err
	}

	d := &FrameDecoder{Header: h, src: src}
	if err := d.allocateRings(); err != nil {
		return nil, err
	}
	d.bits = bitio.NewReader(src)
	return d, nil
}

func (d *FrameDecoder) allocateRings() error {
	poolSize := uint32(1) << d.Header.BufferBits
	d.pool = make([]rleCell, poolSize)

	var consumed uint32
	for r := 0; r < RegistersPerFrame; r++ {
		code := uint8((d.Header.Rbusz >> (2 * r)) & 0x03)
		if code == 0 {
			d.rings[r] = newRing(nil, 0, aybits[r])
			continue
		}
		sz := d.Header.BufferBits - 4 - 2 + code
		ring := newRing(d.pool[consumed:], sz, aybits[r])
		d.rings[r] = ring
		consumed += uint32(1) << sz
	}

	if consumed != poolSize {
		return device.ErrInvalidArgument
	}
	return nil
}

// ReadFrame decodes one 16-register frame in register order 0..15.
func (d *FrameDecoder) ReadFrame(out *[RegistersPerFrame]uint8) error {
	for r := 0; r < RegistersPerFrame; r++ {
		v, err := d.rings[r].NextValue(d.bits)
		if err != nil {
			return device.ErrCorrupted
		}
		out[r] = v
	}
	return nil
}

// RestartAtLoop resets the bitstream to the header's recorded start, resets
// the bit reader, and discard-decodes LoopFrame frames so subsequent
// ReadFrame calls resume exactly at the loop point. Backref/RLE state is
// dense and cannot be forward-projected, so this is the only valid way to
// re-enter the loop.
func (d *FrameDecoder) RestartAtLoop() error {
	d.src.SetFpos(d.Header.BitstreamStart)
	if err := d.allocateRings(); err != nil {
		return err
	}
	d.bits = bitio.NewReader(d.src)

	var scratch [RegistersPerFrame]uint8
	for i := uint32(0); i < d.Header.LoopFrame; i++ {
		if err := d.ReadFrame(&scratch); err != nil {
			return err
		}
	}
	return nil
}
