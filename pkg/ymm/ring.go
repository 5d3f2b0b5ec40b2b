// Package ymm implements the .ymm variant-2 header parser and the per-register
// backref/RLE decoder that turns a bitstream into sound-chip register frames.
package ymm

import "github.com/kiomusic/ymmplayer/pkg/bitio"

// rleCell is one (value, repeat-count) cell stored in a RingBuffer.
type rleCell struct {
	value uint8
	count uint8
}

// RingBuffer is a per-register history ring supporting LZ-style backrefs by
// cell index, a direct port of the original BackrefBuffer::next_value.
type RingBuffer struct {
	data  []rleCell
	mask  uint16
	bits  uint8 // bit width of a backref offset; 0 for a dead (unused) ring
	ayBits uint8 // bit width of a raw register value for this channel

	index uint16

	regValue uint8
	regCount uint8

	backrefOffset uint16
	backrefCount  uint16
}

// newRing carves a ring of 2^bits cells out of pool (or a zero-sized dead
// ring when bits == 0).
func newRing(pool []rleCell, bits, ayBits uint8) RingBuffer {
	if bits == 0 {
		return RingBuffer{bits: 0, ayBits: ayBits}
	}
	size := uint16(1) << bits
	return RingBuffer{data: pool[:size], mask: size - 1, bits: bits, ayBits: ayBits}
}

// NextValue decodes the next register value from r, consuming bits from br
// as needed. It is a direct port of BackrefBuffer::next_value.
func (r *RingBuffer) NextValue(br *bitio.Reader) (uint8, error) {
	if r.regCount > 0 {
		r.regCount--
		return r.regValue, nil
	}

	if r.backrefCount == 0 {
		tag, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}
		isBackref := tag == 1

		var width uint8
		if isBackref {
			width = r.bits
		} else {
			width = r.ayBits
		}
		value, err := br.ReadBits(width)
		if err != nil {
			return 0, err
		}
		count, err := br.ReadNumber()
		if err != nil {
			return 0, err
		}

		if isBackref {
			r.backrefOffset = uint16(value)
			r.backrefCount = uint16(count)
		} else {
			cell := rleCell{value: uint8(value), count: uint8(count)}
			r.data[r.index&r.mask] = cell
			r.index++
			r.regValue = cell.value
			r.regCount = cell.count - 1
			return cell.value, nil
		}
	}

	r.backrefCount--
	src := r.data[(r.index-r.backrefOffset)&r.mask]
	r.data[r.index&r.mask] = src
	r.index++
	r.regValue = src.value
	r.regCount = src.count - 1
	return src.value, nil
}
