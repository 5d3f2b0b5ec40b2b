package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	globalOtoMutex sync.Mutex
	globalContext  *oto.Context
	globalPlayers  int
)

// OtoOutput streams samples to the host's default audio device via
// ebitengine/oto, adapted from the teacher's StreamingOtoOutput: a
// io.Pipe bridges the push-style Write calls the scheduler loop makes to
// oto's pull-style Player.
type OtoOutput struct {
	player     *oto.Player
	writer     *io.PipeWriter
	reader     *io.PipeReader
	sampleRate int
	channels   int
	mu         sync.Mutex
	closed     bool
	wg         sync.WaitGroup
}

// NewOtoOutput creates an unopened Oto-backed output.
func NewOtoOutput() *OtoOutput {
	return &OtoOutput{}
}

func (s *OtoOutput) Open(sampleRate, channels, bufferSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		return fmt.Errorf("audio: oto output already open")
	}

	s.sampleRate = sampleRate
	s.channels = channels
	s.reader, s.writer = io.Pipe()

	globalOtoMutex.Lock()
	if globalContext == nil {
		bufferSizeInBytes := bufferSize * channels * 2
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Duration(bufferSizeInBytes) * time.Second / time.Duration(sampleRate*channels*2),
		}
		context, ready, err := oto.NewContext(op)
		if err != nil {
			globalOtoMutex.Unlock()
			return fmt.Errorf("audio: create oto context: %w", err)
		}
		<-ready
		globalContext = context
	}
	globalPlayers++
	context := globalContext
	globalOtoMutex.Unlock()

	s.player = context.NewPlayer(s.reader)
	s.closed = false

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.player.Play()
	}()

	return nil
}

func (s *OtoOutput) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.writer != nil {
		s.writer.Close()
		s.writer = nil
	}
	time.Sleep(100 * time.Millisecond)

	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}

	globalOtoMutex.Lock()
	globalPlayers--
	globalOtoMutex.Unlock()

	s.wg.Wait()
	return nil
}

func (s *OtoOutput) Write(samples []int16) error {
	s.mu.Lock()
	if s.closed || s.writer == nil {
		s.mu.Unlock()
		return ErrNotOpen
	}
	writer := s.writer
	s.mu.Unlock()

	raw := make([]byte, len(samples)*2)
	for i, sample := range samples {
		raw[i*2] = byte(sample)
		raw[i*2+1] = byte(sample >> 8)
	}
	_, err := writer.Write(raw)
	return err
}

func (s *OtoOutput) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.player != nil
}
