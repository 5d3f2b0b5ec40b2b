package audio

import (
	"os"

	"github.com/youpy/go-wav"
)

// WAVOutput writes samples to a 16-bit PCM WAV file, grounded in
// drgolem-musictools/pkg/decoders/wav's use of youpy/go-wav (there for
// decoding; used here for encoding, the writer half of the same library) in
// place of the teacher's hand-rolled RIFF header construction.
type WAVOutput struct {
	path     string
	file     *os.File
	writer   *wav.Writer
	channels int
}

// NewWAVOutput creates a WAV output that will write to path once Open is
// called.
func NewWAVOutput(path string) *WAVOutput {
	return &WAVOutput{path: path}
}

func (w *WAVOutput) Open(sampleRate, channels, bufferSize int) error {
	f, err := os.Create(w.path)
	if err != nil {
		return err
	}
	w.file = f
	w.channels = channels
	// numSamples is unknown up front for a streamed session; go-wav patches
	// the RIFF/data chunk sizes when the writer is closed via Seek, so 0 is
	// a safe placeholder.
	w.writer = wav.NewWriter(f, 0, uint16(channels), uint32(sampleRate), 16)
	return nil
}

func (w *WAVOutput) Write(samples []int16) error {
	if w.writer == nil {
		return ErrNotOpen
	}
	frames := len(samples) / w.channels
	batch := make([]wav.Sample, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < w.channels && ch < 2; ch++ {
			batch[i].Values[ch] = int(samples[i*w.channels+ch])
		}
	}
	return w.writer.WriteSamples(batch)
}

func (w *WAVOutput) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.writer = nil
	return err
}

func (w *WAVOutput) IsPlaying() bool {
	return w.writer != nil
}
