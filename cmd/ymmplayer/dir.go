package main

import (
	"fmt"
	"os"

	"github.com/kiomusic/ymmplayer/pkg/scheduler"
	"github.com/spf13/cobra"
)

var (
	dirRepeat  bool
	dirVolume  float32
	dirOutput  string
	dirWavPath string
)

var dirCmd = &cobra.Command{
	Use:   "dir <directory>",
	Short: "Play every .ymm file in a directory, in name order",
	Args:  cobra.ExactArgs(1),
	RunE:  runDir,
}

func init() {
	rootCmd.AddCommand(dirCmd)
	dirCmd.Flags().BoolVarP(&dirRepeat, "repeat", "r", false, "rewind to the first entry after the last finishes")
	dirCmd.Flags().Float32VarP(&dirVolume, "volume", "v", 1.0, "output volume (0.0-1.0)")
	dirCmd.Flags().StringVarP(&dirOutput, "output", "o", "oto", "output backend: oto, wav, null")
	dirCmd.Flags().StringVar(&dirWavPath, "wav", "", "WAV file path when --output=wav")
}

func runDir(cmd *cobra.Command, args []string) error {
	path := args[0]
	if info, err := os.Stat(path); err != nil {
		return err
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	cfg := loadConfig()
	if cmd.Flags().Changed("volume") {
		cfg.DefaultVolume = dirVolume
	}

	out, err := newOutput(dirOutput, dirWavPath)
	if err != nil {
		return err
	}

	fmt.Printf("Playing directory %s\n", path)
	return runSession(cfg, out, func(s *scheduler.Scheduler) {
		s.PlayDirectoryLoop(path, dirRepeat)
	})
}
