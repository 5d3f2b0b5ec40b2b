package main

import (
	"fmt"
	"os"

	"github.com/kiomusic/ymmplayer/pkg/scheduler"
	"github.com/spf13/cobra"
)

var (
	playLoop    bool
	playVolume  float32
	playOutput  string
	playWavPath string
)

var playCmd = &cobra.Command{
	Use:   "play <file.ymm>",
	Short: "Play a single .ymm file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().BoolVarP(&playLoop, "loop", "l", false, "loop at the file's loop point")
	playCmd.Flags().Float32VarP(&playVolume, "volume", "v", 1.0, "output volume (0.0-1.0)")
	playCmd.Flags().StringVarP(&playOutput, "output", "o", "oto", "output backend: oto, wav, null")
	playCmd.Flags().StringVar(&playWavPath, "wav", "", "WAV file path when --output=wav")
}

func runPlay(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return err
	}

	cfg := loadConfig()
	if cmd.Flags().Changed("volume") {
		cfg.DefaultVolume = playVolume
	}

	out, err := newOutput(playOutput, playWavPath)
	if err != nil {
		return err
	}

	fmt.Printf("Playing %s\n", path)
	return runSession(cfg, out, func(s *scheduler.Scheduler) {
		s.PlayLoop(path, playLoop)
	})
}
