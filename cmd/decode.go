package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"base64plus/internal/logger"
	"base64plus/pkg/models"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [envelope-file]",
	Short: "Inspect a Base64Plus envelope and extract its image",
	Long: `Decode a Base64Plus envelope and print its format and detected text elements.

Optionally write the embedded image (--image, original bytes) and an annotated
PNG with every text region outlined (--annotated).

By default unknown keys are ignored and span values are not range-checked;
--strict rejects spans with empty text, negative boxes or confidence outside [0, 1].`,
	Example: `  # Print a summary of the first five text elements
  b64p decode scan.b64p

  # Extract the image and an annotated copy
  b64p decode scan.b64p --image scan.png --annotated scan.annotated.png

  # Machine-readable spans
  b64p decode scan.b64p --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

// DecodeOutput represents the JSON output structure when --json flag is used
type DecodeOutput struct {
	FileName   string            `json:"file_name"`
	Format     string            `json:"format"`
	ImageBytes int               `json:"image_bytes"`
	SpanCount  int               `json:"span_count"`
	Spans      []models.TextSpan `json:"text_data"`
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().String("image", "", "Write the decoded image to this path")
	decodeCmd.Flags().String("annotated", "", "Write an annotated PNG to this path")
	decodeCmd.Flags().Bool("json", false, "Output spans as JSON")
	decodeCmd.Flags().Bool("strict", false, "Validate every span")
	decodeCmd.Flags().Int("limit", 5, "Number of text elements to list (0 = all)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("decode")

	imagePath, _ := cmd.Flags().GetString("image")
	annotatedPath, _ := cmd.Flags().GetString("annotated")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	strict, _ := cmd.Flags().GetBool("strict")
	limit, _ := cmd.Flags().GetInt("limit")

	path := args[0]

	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}
	client := newClient(cfg, nil, strict, log)

	res, err := client.DecodeFile(path)
	if err != nil {
		return handleDecodeError(err, path, log)
	}

	log.Debug().
		Str("file", path).
		Str("format", res.Format).
		Int("spans", len(res.Spans)).
		Msg("Envelope decoded")

	if imagePath != "" {
		if err := client.Save(res, imagePath); err != nil {
			log.Error().Err(err).Str("output_file", imagePath).Msg("Failed to save image")
			return err
		}
		log.Info().Str("output_file", imagePath).Msg("Decoded image saved")
	}

	if annotatedPath != "" {
		if err := client.Render(res, annotatedPath); err != nil {
			log.Error().Err(err).Str("output_file", annotatedPath).Msg("Failed to render annotated image")
			return fmt.Errorf("failed to render annotated image: %w", err)
		}
		log.Info().Str("output_file", annotatedPath).Msg("Annotated image saved")
	}

	if jsonOutput {
		out := DecodeOutput{
			FileName:   path,
			Format:     res.Format,
			ImageBytes: len(res.Image),
			SpanCount:  len(res.Spans),
			Spans:      res.Spans,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		return writeOutput(data, "", log)
	}

	writeSummary(os.Stdout, res, limit)
	return nil
}

// writeSummary prints the format, the span count and the first limit spans.
func writeSummary(w io.Writer, res *models.DecodedResult, limit int) {
	fmt.Fprintf(w, "Image format: %s\n", res.Format)
	fmt.Fprintf(w, "Image size: %d bytes\n", len(res.Image))
	fmt.Fprintf(w, "Number of text elements detected: %d\n", len(res.Spans))
	if len(res.Spans) == 0 {
		return
	}

	shown := res.Spans
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	fmt.Fprintln(w, "\nDetected text elements:")
	for i, s := range shown {
		fmt.Fprintf(w, "%d. Text: %s\n", i+1, s.Text)
		fmt.Fprintf(w, "   Position: x=%d, y=%d, width=%d, height=%d\n", s.X, s.Y, s.Width, s.Height)
		if s.Confidence != nil {
			fmt.Fprintf(w, "   Confidence: %.2f\n", *s.Confidence)
		}
	}
	if rest := len(res.Spans) - len(shown); rest > 0 {
		fmt.Fprintf(w, "... and %d more elements\n", rest)
	}
}
