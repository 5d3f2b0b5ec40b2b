// Package heatshrink implements a decoder for the HeatShrink LZSS-style
// compressed stream format: a sliding window of 2^W bytes, a lookahead of
// 2^L bytes, and a 7-state bit-level decode loop. A Decoder is itself a
// device.ByteSource over the decompressed bytes.
package heatshrink

import (
	"encoding/binary"
	"errors"

	"github.com/kiomusic/ymmplayer/pkg/bitio"
	"github.com/kiomusic/ymmplayer/pkg/device"
)

// Magic is the little-endian 32-bit magic value at the start of a HeatShrink
// stream header.
const Magic = 0x5f76d7e1

type state uint8

const (
	stateTagBit state = iota
	stateYieldLiteral
	stateBackrefIndexMSB
	stateBackrefIndexLSB
	stateBackrefCountMSB
	stateBackrefCountLSB
	stateYieldBackref
)

// Decoder decodes a HeatShrink stream on demand and exposes the decompressed
// bytes as a device.ByteSource.
type Decoder struct {
	inner device.ByteSource // positioned at cdata when constructed
	cdata uint32            // offset of first compressed byte

	window    uint8 // W
	lookahead uint8 // L
	usize     uint32
	csize     uint32 // compressed byte count

	bits   *bitio.Reader
	bsrc   *boundedSource
	state  state
	windowBuf []byte // 2^window bytes

	headIndex   uint32
	outputIndex uint32
	outputCount uint32

	upos       uint32
	eofPending bool
}

// New constructs a decoder with explicit parameters, positioned to read
// csize compressed bytes starting at src's current position.
func New(src device.ByteSource, window, lookahead uint8, usize, csize uint32) (*Decoder, error) {
	if window < 4 || window > 14 {
		return nil, device.ErrInvalidArgument
	}
	if lookahead < 3 || lookahead >= window {
		return nil, device.ErrInvalidArgument
	}
	if csize == 0 {
		return nil, device.ErrInvalidArgument
	}

	d := &Decoder{
		inner:     src,
		cdata:     src.Fpos(),
		window:    window,
		lookahead: lookahead,
		usize:     usize,
		csize:     csize,
		windowBuf: make([]byte, 1<<window),
	}
	d.openBitstream()
	return d, nil
}

// NewFromHeader reads the 12-byte HeatShrink header from src (magic, usize,
// packed csize word) and constructs a decoder for the compressed bytes that
// follow.
func NewFromHeader(src device.ByteSource) (*Decoder, error) {
	var hdr [12]byte
	if _, err := src.Read(hdr[:], false); err != nil {
		return nil, err
	}

	magic := binary.LittleEndian.Uint32(hdr[0:4])
	if magic != Magic {
		return nil, device.ErrInvalidArgument
	}
	usize := binary.LittleEndian.Uint32(hdr[4:8])
	word := binary.LittleEndian.Uint32(hdr[8:12])

	window := uint8(word >> 28)
	lookahead := uint8((word >> 24) & 0x0f)
	csize := word & 0x00ffffff

	return New(src, window, lookahead, usize, csize)
}

func (d *Decoder) openBitstream() {
	d.bsrc = &boundedSource{inner: d.inner, remaining: d.csize}
	d.bits = bitio.NewReader(d.bsrc)
	d.state = stateTagBit
	d.headIndex = 0
	d.outputIndex = 0
	d.outputCount = 0
}

func (d *Decoder) windowMask() uint32 { return uint32(1)<<d.window - 1 }

func (d *Decoder) appendWindow(b byte) {
	d.windowBuf[d.headIndex&d.windowMask()] = b
	d.headIndex++
}

// nextByte runs the state machine until it yields one decompressed byte.
func (d *Decoder) nextByte() (byte, error) {
	for {
		switch d.state {
		case stateTagBit:
			bit, err := d.bits.ReadBits(1)
			if err != nil {
				return 0, err
			}
			if bit == 1 {
				d.state = stateYieldLiteral
			} else if d.window > 8 {
				d.state = stateBackrefIndexMSB
			} else {
				d.outputIndex = 0
				d.state = stateBackrefIndexLSB
			}

		case stateYieldLiteral:
			v, err := d.bits.ReadBits(8)
			if err != nil {
				return 0, err
			}
			b := byte(v)
			d.appendWindow(b)
			d.state = stateTagBit
			return b, nil

		case stateBackrefIndexMSB:
			v, err := d.bits.ReadBits(d.window - 8)
			if err != nil {
				return 0, err
			}
			d.outputIndex = v << 8
			d.state = stateBackrefIndexLSB

		case stateBackrefIndexLSB:
			n := d.window
			if n > 8 {
				n = 8
			}
			v, err := d.bits.ReadBits(n)
			if err != nil {
				return 0, err
			}
			d.outputIndex |= v
			d.outputIndex++
			d.outputCount = 0
			if d.lookahead > 8 {
				d.state = stateBackrefCountMSB
			} else {
				d.state = stateBackrefCountLSB
			}

		case stateBackrefCountMSB:
			v, err := d.bits.ReadBits(d.lookahead - 8)
			if err != nil {
				return 0, err
			}
			d.outputCount = v << 8
			d.state = stateBackrefCountLSB

		case stateBackrefCountLSB:
			n := d.lookahead
			if n > 8 {
				n = 8
			}
			v, err := d.bits.ReadBits(n)
			if err != nil {
				return 0, err
			}
			d.outputCount |= v
			d.outputCount++
			d.state = stateYieldBackref

		case stateYieldBackref:
			b := d.windowBuf[(d.headIndex-d.outputIndex)&d.windowMask()]
			d.appendWindow(b)
			d.outputCount--
			if d.outputCount == 0 {
				d.state = stateTagBit
			}
			return b, nil
		}
	}
}

// Size returns the decompressed stream size.
func (d *Decoder) Size() uint32 { return d.usize }

// Fpos returns the current decompressed read position.
func (d *Decoder) Fpos() uint32 { return d.upos }

// Read implements device.ByteSource, decoding on demand.
func (d *Decoder) Read(p []byte, partial bool) (int, error) {
	avail := d.usize - d.upos
	if avail == 0 {
		if !partial {
			return 0, device.ErrEndOfFile
		}
		if d.eofPending {
			return 0, device.ErrEndOfFile
		}
		d.eofPending = true
		return 0, nil
	}

	want := uint32(len(p))
	if want > avail {
		if !partial {
			return 0, device.ErrEndOfFile
		}
		want = avail
	}

	for i := uint32(0); i < want; i++ {
		b, err := d.nextByte()
		if err != nil {
			if errors.Is(err, device.ErrEndOfFile) {
				return int(i), device.ErrCorrupted
			}
			return int(i), err
		}
		p[i] = b
	}
	d.upos += want
	if want > 0 {
		d.eofPending = false
	}
	return int(want), nil
}

// SetFpos implements the HeatShrink seek law: forward seeks discard-read,
// backward seeks reset the state machine and restart decoding from cdata.
func (d *Decoder) SetFpos(pos uint32) {
	if pos > d.usize {
		pos = d.usize
	}
	if pos == d.upos {
		return
	}
	if pos < d.upos {
		d.inner.SetFpos(d.cdata)
		d.openBitstream()
		d.upos = 0
		d.eofPending = false
	}

	remaining := pos - d.upos
	discard := make([]byte, 4096)
	for remaining > 0 {
		n := remaining
		if n > uint32(len(discard)) {
			n = uint32(len(discard))
		}
		got, err := d.Read(discard[:n], false)
		if err != nil {
			return
		}
		remaining -= uint32(got)
	}
}

// boundedSource wraps inner, limiting reads to `remaining` compressed bytes
// and translating exhaustion mid-codeword into device.ErrCorrupted (per the
// spec: unexpected EOF inside a codeword is fatal, unlike a clean top-level
// end of the decompressed stream).
type boundedSource struct {
	inner     device.ByteSource
	remaining uint32
	consumed  uint32
}

func (b *boundedSource) Read(p []byte, partial bool) (int, error) {
	if b.remaining == 0 {
		return 0, device.ErrCorrupted
	}
	want := uint32(len(p))
	if want > b.remaining {
		want = b.remaining
	}
	n, err := b.inner.Read(p[:want], false)
	b.remaining -= uint32(n)
	b.consumed += uint32(n)
	if err != nil {
		if errors.Is(err, device.ErrEndOfFile) {
			return n, device.ErrCorrupted
		}
		return n, err
	}
	return n, nil
}

func (b *boundedSource) Fpos() uint32    { return b.consumed }
func (b *boundedSource) SetFpos(_ uint32) {}
func (b *boundedSource) Size() uint32    { return b.consumed + b.remaining }
