// Package scheduler drives the .ymm decoder from a worker context and feeds
// decoded register frames into a framequeue.Queue consumed by an audio
// callback, a direct port of the original YMMusicPlayer's run()/getAudio()
// pair.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kiomusic/ymmplayer/pkg/aychip"
	"github.com/kiomusic/ymmplayer/pkg/device"
	"github.com/kiomusic/ymmplayer/pkg/framequeue"
	"github.com/kiomusic/ymmplayer/pkg/ymm"
)

// ayRegisterResetValues are the register values written into a reset slot:
// all three tone/noise mixer bits disabled (register 7 = 0xff), everything
// else silent.
var ayRegisterResetValues = [16]uint8{0, 0, 0, 0, 0, 0, 0, 0xff, 0, 0, 0, 0, 0, 0, 0, 0}

const (
	shortDelay = 10 * time.Millisecond
	longDelay  = 100 * time.Millisecond
)

// Scheduler is the PlayerScheduler: it owns playlist/loop policy, drives
// decoding from Tick (the worker context) and produces audio from GetAudio
// (the real-time audio-callback context). The two contexts share only the
// frame queue.
type Scheduler struct {
	queue *framequeue.Queue
	sink  aychip.RegisterSink
	log   *slog.Logger

	mu         sync.Mutex
	nextFile   string
	nextDir    string
	dir        *dirIterator
	repeatFile bool
	repeatDir  bool
	paused     bool
	stopped    bool

	// worker-context-only state; not touched by GetAudio.
	decoder      *ymm.FrameDecoder
	src          *device.FileSource
	framesPlayed uint32
	isLive       bool

	// ayClock and ccPerFrame are written by openFile/closeSession (worker
	// context) and read by GetAudio (audio-callback context), so they are
	// guarded by mu like decoder.
	ayClock    int64
	ccPerFrame int64

	// outputSampleRate is fixed at construction; GetAudio-only state below
	// is never touched outside GetAudio so it needs no lock.
	outputSampleRate int64
	cc               int64
	ccNext           int64
}

// New creates a scheduler writing decoded frames into queue and driving
// sink as the audio-callback counterpart. sampleRate is the output audio
// sample rate in Hz; GetAudio uses it together with the open song's
// ay_clock to convert elapsed samples into AY cycles for cc_next pacing.
func New(queue *framequeue.Queue, sink aychip.RegisterSink, sampleRate int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{queue: queue, sink: sink, outputSampleRate: int64(sampleRate), log: log}
}

// Play requests playback of path with looping disabled.
func (s *Scheduler) Play(path string) { s.PlayLoop(path, false) }

// PlayLoop requests playback of path, looping at the file's loop point when
// loop is true.
func (s *Scheduler) PlayLoop(path string, loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFile = path
	s.repeatFile = loop
}

// PlayDirectory requests sequential playback of every *.ymm file in path.
func (s *Scheduler) PlayDirectory(path string) { s.PlayDirectoryLoop(path, false) }

// PlayDirectoryLoop requests sequential playback of path, rewinding to the
// first entry when the last one finishes if loop is true.
func (s *Scheduler) PlayDirectoryLoop(path string, loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDir = path
	s.repeatDir = loop
}

// Pause toggles the paused flag; a paused session stops emitting new
// frames but keeps the current song open.
func (s *Scheduler) Pause(on bool) {
	s.mu.Lock()
	s.paused = on
	s.mu.Unlock()
}

// Resume is Pause(false).
func (s *Scheduler) Resume() { s.Pause(false) }

// Skip closes the current song at the next Tick without touching the
// pending playlist.
func (s *Scheduler) Skip() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// StopAfterSong clears the pending playlist (file, directory, repeat
// flags) without interrupting the song currently playing.
func (s *Scheduler) StopAfterSong() {
	s.mu.Lock()
	s.nextFile = ""
	s.nextDir = ""
	s.repeatFile = false
	s.repeatDir = false
	s.paused = false
	s.dir = nil
	s.mu.Unlock()
}

// Stop is Skip followed by StopAfterSong.
func (s *Scheduler) Stop() {
	s.Skip()
	s.StopAfterSong()
}

// SetVolume forwards to the register sink.
func (s *Scheduler) SetVolume(v float32) { s.sink.SetVolume(v) }

// SetSampleRate forwards to the register sink; callers must reopen the
// audio output themselves, the scheduler has no device handle of its own.
func (s *Scheduler) SetSampleRate(hz float64) { s.sink.SetClock(hz) }

// IsActive reports whether there is a song currently open or pending: a
// host's playback loop can use this to exit once a non-looping playlist
// drains naturally instead of only on an interrupt signal.
func (s *Scheduler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoder != nil || s.nextFile != "" || s.nextDir != "" || s.dir != nil
}

// Tick runs one non-blocking step of the worker state machine and returns a
// suggested delay until the next call.
func (s *Scheduler) Tick() time.Duration {
	if s.queue.Free() == 0 {
		return shortDelay
	}

	s.mu.Lock()
	stopped := s.stopped
	s.stopped = false
	paused := s.paused
	s.mu.Unlock()

	if stopped && s.decoder != nil {
		s.closeSession()
	}

	switch {
	case s.decoder != nil:
		return s.tickPlaying(paused)
	case s.pendingFile() != "":
		return s.tickOpenFile()
	case s.dir != nil:
		return s.tickDirectory()
	case s.pendingDir() != "":
		return s.tickOpenDirectory()
	default:
		return longDelay
	}
}

func (s *Scheduler) pendingFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextFile
}

func (s *Scheduler) pendingDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextDir
}

func (s *Scheduler) tickPlaying(paused bool) time.Duration {
	if paused {
		return longDelay
	}

	if err := s.produceFrame(); err != nil {
		s.log.Warn("ymm decode error, closing session", "error", err)
		s.closeSessionWithResetFrame()
		return shortDelay
	}

	if !s.isLive {
		s.isLive = true
	}
	s.framesPlayed++

	if s.framesPlayed < s.decoder.Header.NumFrames {
		return shortDelay
	}

	s.mu.Lock()
	repeat := s.repeatFile && s.nextFile == "" && s.nextDir == ""
	s.mu.Unlock()

	if repeat {
		if err := s.decoder.RestartAtLoop(); err != nil {
			s.log.Warn("ymm loop restart failed, closing session", "error", err)
			s.closeSession()
		} else {
			s.framesPlayed = s.decoder.Header.LoopFrame
		}
	} else {
		s.closeSession()
	}
	return shortDelay
}

func (s *Scheduler) produceFrame() error {
	slot := s.queue.WriteSlot()
	slot.What = framequeue.Frame
	if err := s.decoder.ReadFrame(&slot.Registers); err != nil {
		return err
	}
	s.queue.PublishWrite()
	return nil
}

func (s *Scheduler) closeSession() {
	if s.src != nil {
		s.src.Close()
	}
	s.mu.Lock()
	s.decoder = nil
	s.ayClock = 0
	s.ccPerFrame = 0
	s.mu.Unlock()
	s.src = nil
	s.isLive = false
}

// closeSessionWithResetFrame mirrors the original's catch-block behavior:
// on a decode error, close the file and push a reset slot. GetAudio applies
// it by resetting stereo mix, clock and its cycle counter; the slot's
// register values are not written to the sink.
func (s *Scheduler) closeSessionWithResetFrame() {
	s.closeSession()
	slot := s.queue.WriteSlot()
	slot.What = framequeue.Reset
	slot.Registers = ayRegisterResetValues
	s.queue.PublishWrite()
}

func (s *Scheduler) tickOpenFile() time.Duration {
	s.mu.Lock()
	path := s.nextFile
	s.nextFile = ""
	s.mu.Unlock()

	if err := s.openFile(path); err != nil {
		s.log.Warn("failed to open ymm file", "path", path, "error", err)
	}
	return shortDelay
}

func (s *Scheduler) openFile(path string) error {
	src, err := device.OpenFileSource(path)
	if err != nil {
		return err
	}

	decoder, err := ymm.NewFrameDecoder(src)
	if err != nil {
		src.Close()
		return err
	}

	s.mu.Lock()
	s.decoder = decoder
	s.ayClock = int64(decoder.Header.AyClock)
	s.ccPerFrame = int64(float64(decoder.Header.AyClock)/float64(decoder.Header.FrameRate) + 0.5)
	s.mu.Unlock()
	s.src = src
	s.framesPlayed = 0

	slot := s.queue.WriteSlot()
	slot.What = framequeue.Reset
	slot.Registers = ayRegisterResetValues
	s.queue.PublishWrite()

	s.log.Info("now playing", "path", path, "title", decoder.Header.Title, "author", decoder.Header.Author)
	return nil
}

func (s *Scheduler) tickDirectory() time.Duration {
	entry, ok := s.dir.next()
	if ok {
		s.mu.Lock()
		s.nextFile = entry
		s.mu.Unlock()
		return longDelay
	}

	s.mu.Lock()
	repeat := s.repeatDir && s.nextDir == ""
	s.mu.Unlock()

	if repeat {
		s.dir.rewind()
	} else {
		s.dir = nil
	}
	return longDelay
}

func (s *Scheduler) tickOpenDirectory() time.Duration {
	s.mu.Lock()
	path := s.nextDir
	s.nextDir = ""
	s.mu.Unlock()

	it, err := newDirIterator(path)
	if err != nil {
		s.log.Warn("failed to open directory", "path", path, "error", err)
		return longDelay
	}
	s.dir = it
	return longDelay
}

// GetAudio is the real-time audio-callback context: it advances the
// simulated AY cycle counter by the cycles this buffer represents, then
// applies every queued frame slot whose cc_next boundary has already been
// crossed - draining more than one if several frame periods elapsed since
// the last call, per the source's cc_next/cc_per_frame scheduling - before
// asking the register sink to mix len(buffer) samples. A reset slot
// reconfigures clock and stereo mix and restarts the cycle counter; at most
// one is applied per call, matching the source treating a session reset as
// its own event rather than a frame boundary. It never allocates, never
// blocks, and never returns an error; an empty queue simply produces
// whatever the sink mixes from its current register state. A reset slot
// writes no registers, so the last applied frame stays in effect after it.
func (s *Scheduler) GetAudio(buffer []int16) int {
	s.mu.Lock()
	ayClock := s.ayClock
	ccPerFrame := s.ccPerFrame
	s.mu.Unlock()

	s.cc += s.bufferCycles(len(buffer), ayClock)

	for s.queue.Avail() > 0 {
		slot := s.queue.ReadSlot()
		if slot.What == framequeue.Reset {
			s.sink.SetStereoMix(aychip.Mono)
			if ayClock > 0 {
				s.sink.SetClock(float64(ayClock))
			}
			s.cc = 0
			s.ccNext = 0
			s.queue.ConsumeRead()
			break
		}

		if s.ccNext > s.cc {
			break
		}

		lastRegister := 13
		if slot.Registers[13] == 0x0f {
			lastRegister = 12
		}
		s.sink.WriteRegister(0, slot.Registers[0])
		for i := 1; i <= lastRegister; i++ {
			s.sink.WriteRegister(i, slot.Registers[i])
		}
		s.ccNext += ccPerFrame
		s.queue.ConsumeRead()
	}

	return s.sink.Mix(buffer)
}

// bufferCycles converts numSamples at the scheduler's output sample rate
// into the equivalent elapsed AY clock cycles. It returns 0 before a song
// has set ayClock, which keeps the cc_next gate open so manually-queued
// slots (as used by scheduler tests that never open a real file) apply
// immediately instead of stalling on an unconfigured clock.
func (s *Scheduler) bufferCycles(numSamples int, ayClock int64) int64 {
	if s.outputSampleRate <= 0 || ayClock <= 0 {
		return 0
	}
	return int64(numSamples) * ayClock / s.outputSampleRate
}
