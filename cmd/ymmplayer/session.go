package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiomusic/ymmplayer/internal/config"
	"github.com/kiomusic/ymmplayer/pkg/audio"
	"github.com/kiomusic/ymmplayer/pkg/aychip"
	"github.com/kiomusic/ymmplayer/pkg/framequeue"
	"github.com/kiomusic/ymmplayer/pkg/scheduler"
)

const audioBufferSize = 2048

// loadConfig applies --config if set, else falls back to defaults.
func loadConfig() config.Config {
	if configPath == "" {
		return config.Defaults()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		return config.Defaults()
	}
	return cfg
}

func newOutput(backend, wavPath string) (audio.Output, error) {
	switch backend {
	case "", "oto":
		return audio.NewOtoOutput(), nil
	case "wav":
		if wavPath == "" {
			wavPath = "out.wav"
		}
		return audio.NewWAVOutput(wavPath), nil
	case "null":
		return &audio.NullOutput{}, nil
	default:
		return nil, &unknownBackendError{backend}
	}
}

type unknownBackendError struct{ backend string }

func (e *unknownBackendError) Error() string {
	return "unknown output backend: " + e.backend
}

// runSession wires a scheduler/sink/output triple, drives the worker ticks
// and audio callback on two goroutines exactly like the spec's two
// contexts, and blocks until either playback drains or SIGINT/SIGTERM
// arrives.
func runSession(cfg config.Config, out audio.Output, configure func(s *scheduler.Scheduler)) error {
	queue := framequeue.New(cfg.QueueCapacity)
	sink := aychip.New(cfg.SampleRate)
	sink.SetVolume(cfg.DefaultVolume)
	sched := scheduler.New(queue, sink, cfg.SampleRate, slog.Default())

	configure(sched)

	if err := out.Open(cfg.SampleRate, 1, audioBufferSize); err != nil {
		return err
	}
	defer out.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	stop := make(chan struct{})
	go func() {
		sig := <-sigChan
		slog.Info("stopping", "signal", sig)
		sched.Stop()
		close(stop)
	}()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			delay := sched.Tick()
			time.Sleep(delay)
		}
	}()

	buffer := make([]int16, audioBufferSize)
	started := false
	for {
		select {
		case <-stop:
			<-workerDone
			return nil
		default:
		}

		if sched.IsActive() {
			started = true
		} else if started {
			sched.Stop()
			<-workerDone
			return nil
		}

		sched.GetAudio(buffer)
		if err := out.Write(buffer); err != nil {
			return err
		}
	}
}
