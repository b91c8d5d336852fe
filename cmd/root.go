package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"base64plus/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "b64p",
	Short: "Base64Plus - images with their recognized text in one JSON envelope",
	Long: `b64p packs an image together with the text found in it into a single
self-describing JSON document (.b64p): the base64 image, its format, and every
recognized word with its bounding box and confidence.

Envelopes can be decoded back into the original image, inspected, or rendered
with the text regions outlined.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("b64p executed without subcommand")

		_ = cmd.Help()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
