// Command ymmplayer plays .ymm music files: a single file, a whole
// directory in sequence, or just prints a file's header metadata.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ymmplayer",
	Short: "Play and inspect .ymm chiptune streams",
	Long: `ymmplayer decodes the .ymm variant-2 register-stream format (a LZ+RLE
packed dump of AY-3-8910/YM2149 sound-chip register writes) and drives an
audio output from it.

Commands:
  - play: play a single .ymm file
  - dir:  play every .ymm file in a directory, in name order
  - info: print a file's header metadata without playing it`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file overriding defaults")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
