package ymm

import (
	"encoding/binary"

	"github.com/kiomusic/ymmplayer/pkg/device"
)

// RegistersPerFrame is the fixed per-frame register count required by the
// .ymm variant-2 format.
const RegistersPerFrame = 16

// aybits is the fixed 16-entry per-register raw value width table for the
// AY-3-8910/YM2149 register set, shared between encoder and decoder and not
// stored in the file: fine tune (8 bits), coarse tune (4 bits), noise period
// (5 bits), mixer (8 bits), channel volume (5 bits: 4-bit level + envelope
// select bit), envelope period (8 bits), envelope shape (4 bits), I/O ports
// (8 bits each).
var aybits = [RegistersPerFrame]uint8{
	8, 4, 8, 4, 8, 4, // tone periods A/B/C (fine, coarse)
	5,                // noise period
	8,                // mixer control
	5, 5, 5,          // channel volumes A/B/C
	8, 8,             // envelope period fine/coarse
	4,                // envelope shape
	8, 8,             // I/O port A/B
}

// Header is the parsed .ymm variant-2 header.
type Header struct {
	BufferBits          uint8
	FrameRate           int8
	RegistersPerFrame   uint8
	NumFrames           uint32
	LoopFrame           uint32
	AyClock             uint32
	Title, Author, Comment string
	Rbusz               uint32
	BitstreamStart      uint32
}

func readNTString(src device.ByteSource) (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := src.Read(b[:], false); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}

// ParseHeader reads and validates a .ymm variant-2 header from src, leaving
// src positioned at the start of the bitstream.
func ParseHeader(src device.ByteSource) (Header, error) {
	var h Header

	var fixed [20]byte
	if _, err := src.Read(fixed[:], false); err != nil {
		return h, err
	}
	if string(fixed[0:4]) != "ymm!" {
		return h, device.ErrInvalidArgument
	}
	variant := fixed[4]
	if variant != 2 {
		return h, device.ErrInvalidArgument
	}
	h.BufferBits = fixed[5]
	if h.BufferBits < 8 || h.BufferBits > 14 {
		return h, device.ErrInvalidArgument
	}
	h.FrameRate = int8(fixed[6])
	if h.FrameRate < 25 || h.FrameRate > 100 {
		return h, device.ErrInvalidArgument
	}
	h.RegistersPerFrame = fixed[7]
	if h.RegistersPerFrame != RegistersPerFrame {
		return h, device.ErrInvalidArgument
	}
	h.NumFrames = binary.LittleEndian.Uint32(fixed[8:12])
	h.LoopFrame = binary.LittleEndian.Uint32(fixed[12:16])
	if h.NumFrames <= h.LoopFrame {
		return h, device.ErrInvalidArgument
	}
	h.AyClock = binary.LittleEndian.Uint32(fixed[16:20])
	if h.AyClock < 990000 || h.AyClock > 4100000 {
		return h, device.ErrInvalidArgument
	}

	var err error
	if h.Title, err = readNTString(src); err != nil {
		return h, err
	}
	if h.Author, err = readNTString(src); err != nil {
		return h, err
	}
	if h.Comment, err = readNTString(src); err != nil {
		return h, err
	}

	var rbuszBuf [4]byte
	if _, err := src.Read(rbuszBuf[:], false); err != nil {
		return h, err
	}
	h.Rbusz = binary.LittleEndian.Uint32(rbuszBuf[:])
	h.BitstreamStart = src.Fpos()

	return h, nil
}
