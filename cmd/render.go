package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"base64plus/internal/logger"
)

var renderCmd = &cobra.Command{
	Use:   "render [envelope-file]",
	Short: "Render an envelope's image with its text regions outlined",
	Long: `Decode a Base64Plus envelope and write a PNG of its image with every text
span drawn as a translucent filled box with a solid outline.

The overlay color, fill opacity and stroke width come from B64P_ANNOTATE_COLOR,
B64P_ANNOTATE_FILL_OPACITY and B64P_ANNOTATE_STROKE.`,
	Example: `  b64p render scan.b64p -o scan.annotated.png`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "", "Output PNG path (required)")
	_ = renderCmd.MarkFlagRequired("output")
}

func runRender(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("render")

	outputPath, _ := cmd.Flags().GetString("output")
	path := args[0]

	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}
	client := newClient(cfg, nil, false, log)

	res, err := client.DecodeFile(path)
	if err != nil {
		return handleDecodeError(err, path, log)
	}

	data, err := client.Annotate(res)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to render annotated image")
		return fmt.Errorf("failed to render %s: %w", path, err)
	}

	log.Info().
		Str("file", path).
		Int("spans", len(res.Spans)).
		Msg("Envelope rendered")

	return writeOutput(data, outputPath, log)
}
