package device

import (
	"io"
	"os"
)

// FileSource is a ByteSource backed by an *os.File, the flat-file variant
// named in the spec's ByteSource polymorphism notes.
type FileSource struct {
	f          *os.File
	size       uint32
	fpos       uint32
	eofPending bool
}

// OpenFileSource opens path read-only and wraps it as a ByteSource.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileSource{f: f, size: uint32(info.Size())}, nil
}

func (s *FileSource) Close() error { return s.f.Close() }
func (s *FileSource) Size() uint32 { return s.size }
func (s *FileSource) Fpos() uint32 { return s.fpos }

func (s *FileSource) SetFpos(pos uint32) {
	if pos > s.size {
		pos = s.size
	}
	s.fpos = pos
	s.eofPending = false
	// Best effort; a seek failure surfaces on the next Read instead.
	_, _ = s.f.Seek(int64(pos), io.SeekStart)
}

func (s *FileSource) Read(p []byte, partial bool) (int, error) {
	avail := s.size - s.fpos
	if avail == 0 {
		if !partial {
			return 0, ErrEndOfFile
		}
		if s.eofPending {
			return 0, ErrEndOfFile
		}
		s.eofPending = true
		return 0, nil
	}

	want := uint32(len(p))
	if want > avail {
		if !partial {
			return 0, ErrEndOfFile
		}
		want = avail
	}

	n, err := io.ReadFull(s.f, p[:want])
	s.fpos += uint32(n)
	if n > 0 {
		s.eofPending = false
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return n, err
	}
	return n, nil
}
