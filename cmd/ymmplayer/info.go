package main

import (
	"fmt"

	"github.com/kiomusic/ymmplayer/pkg/device"
	"github.com/kiomusic/ymmplayer/pkg/ymm"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file.ymm>",
	Short: "Print a .ymm file's header metadata without playing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	src, err := device.OpenFileSource(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	h, err := ymm.ParseHeader(src)
	if err != nil {
		return err
	}

	fmt.Printf("Title:        %s\n", h.Title)
	fmt.Printf("Author:       %s\n", h.Author)
	fmt.Printf("Comment:      %s\n", h.Comment)
	fmt.Printf("Frame rate:   %d Hz\n", h.FrameRate)
	fmt.Printf("Frames:       %d\n", h.NumFrames)
	fmt.Printf("Loop frame:   %d\n", h.LoopFrame)
	fmt.Printf("AY clock:     %d Hz\n", h.AyClock)
	fmt.Printf("Buffer bits:  %d\n", h.BufferBits)
	duration := float64(h.NumFrames) / float64(h.FrameRate)
	fmt.Printf("Duration:     %.1fs\n", duration)
	return nil
}
