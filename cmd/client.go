package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"base64plus/internal/config"
	"base64plus/internal/envelope"
	"base64plus/internal/imaging"
	"base64plus/internal/ocr"
	"base64plus/pkg/base64plus"
)

// loadConfig reads the environment configuration and applies the engine flags
// shared by encode and batch.
func loadConfig(cmd *cobra.Command, log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if f := cmd.Flags().Lookup("engine"); f != nil && f.Changed {
		cfg.OCREngine = f.Value.String()
	}
	if f := cmd.Flags().Lookup("lang"); f != nil && f.Changed {
		langs, _ := cmd.Flags().GetStringSlice("lang")
		cfg.OCRLanguages = langs
	}
	return cfg, nil
}

// addEngineFlags registers the OCR engine selection flags on cmd.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("engine", ocr.EngineAuto, "OCR engine: auto, tesseract, vision or documentai")
	cmd.Flags().StringSlice("lang", []string{"eng"}, "OCR languages, e.g. eng,deu")
	cmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

// createEngine builds the configured OCR engine with user-facing errors.
func createEngine(cfg *config.Config, log zerolog.Logger) (ocr.Engine, error) {
	engine, err := ocr.NewEngine(cfg.GetEngineConfig())
	if err != nil {
		log.Error().
			Err(err).
			Str("engine", cfg.OCREngine).
			Msg("Failed to create OCR engine")

		switch {
		case errors.Is(err, ocr.ErrMissingCredentials):
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
				"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
				"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
				"2. Export GOOGLE_CREDENTIALS with inline JSON\n\n" +
				"3. Use Application Default Credentials (if gcloud is configured):\n" +
				"   gcloud auth application-default login\n\n" +
				"Original error: %w", err)
		case errors.Is(err, ocr.ErrDependency):
			return nil, fmt.Errorf("no OCR engine available. Install tesseract (and its language data) "+
				"or select a cloud engine with --engine vision|documentai: %w", err)
		case errors.Is(err, ocr.ErrUnsupportedEngine):
			return nil, fmt.Errorf("unknown OCR engine %q. Available engines: %s",
				cfg.OCREngine, strings.Join(ocr.Registered(), ", "))
		default:
			return nil, fmt.Errorf("failed to create OCR engine: %w", err)
		}
	}

	log.Debug().
		Str("engine", engine.Name()).
		Strs("languages", cfg.OCRLanguages).
		Msg("OCR engine created")
	return engine, nil
}

// newClient builds a Client from cfg around engine (nil for decode-only use).
func newClient(cfg *config.Config, engine ocr.Engine, strict bool, log zerolog.Logger) *base64plus.Client {
	var codec imaging.Codec
	if cfg.ImageProcessing {
		codec = imaging.NewRasterCodec(cfg.JPEGQuality)
	}
	minConfidence := cfg.MinConfidence
	if minConfidence == 0 {
		minConfidence = base64plus.NoConfidenceFilter
	}
	return base64plus.New(base64plus.Config{
		Engine:        engine,
		Codec:         codec,
		MinConfidence: minConfidence,
		Style:         cfg.GetAnnotateStyle(),
		StrictDecode:  strict,
		Logger:        &log,
	})
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleEncodeError provides user-friendly error messages for encode failures
func handleEncodeError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Encoding failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("encoding timed out. Try increasing --timeout or using a smaller image")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("encoding was canceled")
	case errors.Is(err, imaging.ErrNotFound):
		return fmt.Errorf("image file not found: %w", err)
	case errors.Is(err, imaging.ErrInvalidInput), errors.Is(err, imaging.ErrEmptyImage):
		return fmt.Errorf("invalid image input: %w", err)
	case errors.Is(err, imaging.ErrReencodeFailed):
		return fmt.Errorf("the file could not be read as an image (supported: png, jpeg, gif, bmp, tiff, webp): %w", err)
	case errors.Is(err, ocr.ErrDependency):
		return fmt.Errorf("no OCR engine available: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS "+
			"or GOOGLE_CREDENTIALS, or run: gcloud auth application-default login\n\nOriginal error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account may call the selected OCR API")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "quota"):
		return fmt.Errorf("OCR API quota exceeded. Lower --rps or check your project quotas")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed: %w", err)
	default:
		return fmt.Errorf("encoding failed: %w", err)
	}
}

// handleDecodeError provides user-friendly error messages for decode failures
func handleDecodeError(err error, path string, log zerolog.Logger) error {
	log.Error().Err(err).Str("file", path).Msg("Decoding failed")

	switch {
	case errors.Is(err, imaging.ErrNotFound):
		return fmt.Errorf("envelope file not found: %s", path)
	case errors.Is(err, envelope.ErrParse):
		return fmt.Errorf("%s is not a valid Base64Plus envelope: %w", path, err)
	case errors.Is(err, envelope.ErrSchema):
		return fmt.Errorf("%s does not match the Base64Plus schema: %w", path, err)
	default:
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(data []byte, path string, log zerolog.Logger) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Println()
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", path).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", path).
		Int("bytes", len(data)).
		Msg("Output written to file")
	return nil
}
