// Package device defines the seekable byte-stream abstraction that every
// decoder in this repository reads from.
package device

import "errors"

// Sentinel error kinds. Decoders and the scheduler compare against these
// with errors.Is rather than inspecting string content.
var (
	ErrEndOfFile       = errors.New("device: end of file")
	ErrInvalidArgument = errors.New("device: invalid argument")
	ErrNotReadable     = errors.New("device: not readable")
	ErrNotWritable     = errors.New("device: not writable")
	ErrTimeout         = errors.New("device: timeout")
	ErrCorrupted       = errors.New("device: data corrupted")
)

// ByteSource is a seekable, possibly partial-read byte stream. Flat files,
// in-memory buffers and the HeatShrink decoder (which is itself a consumer
// of a ByteSource) all implement it.
//
// Read delivers up to len(p) bytes. If partial is false, Read either
// delivers exactly len(p) bytes or returns ErrEndOfFile: the caller has asked
// for an exact count. If partial is true, Read may return fewer bytes than len(p)
// without error; a second call that would deliver zero bytes at EOF returns
// ErrEndOfFile (the "eof-pending" flag becomes sticky after the first
// zero-byte partial read).
type ByteSource interface {
	Read(p []byte, partial bool) (n int, err error)
	Fpos() uint32
	SetFpos(pos uint32)
	Size() uint32
}
