package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"base64plus/internal/logger"
	"base64plus/pkg/base64plus"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [image-file]",
	Short: "Encode an image and its recognized text into a Base64Plus envelope",
	Long: `Run OCR on an image and write a Base64Plus envelope: the image as base64,
its format, and every recognized word with bounding box and confidence.

The output format is taken from --format, else from the file extension, else
from the image itself. Words below B64P_MIN_CONFIDENCE (default 0.10) are
dropped as noise.

Engines:
  auto, tesseract - local Tesseract (libtesseract + language data required)
  vision          - Google Cloud Vision (GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS)
  documentai      - Google Document AI (also GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID)`,
	Example: `  # Encode to stdout
  b64p encode scan.png

  # Write next to the image as scan.b64p
  b64p encode scan.png -o scan.b64p

  # Force JPEG payload, drop confidence scores
  b64p encode scan.png --format jpeg --no-confidence -o scan.b64p

  # Use Cloud Vision with a German + English hint
  b64p encode receipt.jpg --engine vision --lang deu,eng`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	encodeCmd.Flags().String("format", "", "Image format for the envelope: png or jpeg")
	encodeCmd.Flags().Bool("no-confidence", false, "Omit per-span confidence scores")
	addEngineFlags(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("encode")

	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	noConfidence, _ := cmd.Flags().GetBool("no-confidence")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}

	log.Info().
		Str("file", imagePath).
		Str("output", outputPath).
		Str("format", format).
		Str("engine", cfg.OCREngine).
		Int("timeout", timeoutSecs).
		Msg("Starting encode")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	engine, err := createEngine(cfg, log)
	if err != nil {
		return err
	}
	client := newClient(cfg, engine, false, log)

	opts := base64plus.DefaultEncodeOptions()
	opts.IncludeConfidence = !noConfidence
	opts.ImageFormat = format

	start := time.Now()
	env, err := client.Encode(ctx, imagePath, opts)
	if err != nil {
		return handleEncodeError(err, log)
	}

	log.Info().
		Dur("duration", time.Since(start)).
		Int("envelope_bytes", len(env)).
		Msg("Encode completed successfully")

	return writeOutput([]byte(env), outputPath, log)
}
