package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"base64plus/internal/envelope"
	"base64plus/internal/logger"
	"base64plus/internal/ocr"
	"base64plus/internal/sheets"
	"base64plus/pkg/base64plus"
	"base64plus/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [image-files...]",
	Short: "Encode many images concurrently",
	Long: `Encode every given image into <out-dir>/<name>.b64p.

Images are processed by --concurrency workers. --rps caps how many OCR
sessions are started per second, which keeps cloud engines under their
quota. A failed image is reported and does not stop the others unless
--fail-fast is set.`,
	Example: `  b64p batch scans/*.png --out-dir envelopes

  # Cloud Vision, 8 workers, at most 4 requests per second
  b64p batch scans/*.jpg --out-dir envelopes --engine vision --concurrency 8 --rps 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

// batchResult is the outcome of one image in a batch run.
type batchResult struct {
	Image  string
	Output string
	Format string
	Spans  []models.TextSpan
	Err    error
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("out-dir", ".", "Directory for the .b64p files")
	batchCmd.Flags().Int("concurrency", 4, "Number of images encoded in parallel")
	batchCmd.Flags().Float64("rps", 0, "Maximum OCR sessions started per second (0 = unlimited)")
	batchCmd.Flags().String("format", "", "Image format for the envelopes: png or jpeg")
	batchCmd.Flags().Bool("no-confidence", false, "Omit per-span confidence scores")
	batchCmd.Flags().Bool("fail-fast", false, "Stop at the first failed image")
	batchCmd.Flags().String("sheet", "", "Append a report row per image to this Google Sheet (URL or ID)")
	batchCmd.Flags().String("sheet-name", sheets.DefaultSheetName, "Tab name for the --sheet report")
	addEngineFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	outDir, _ := cmd.Flags().GetString("out-dir")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	rps, _ := cmd.Flags().GetFloat64("rps")
	format, _ := cmd.Flags().GetString("format")
	noConfidence, _ := cmd.Flags().GetBool("no-confidence")
	failFast, _ := cmd.Flags().GetBool("fail-fast")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	sheetName, _ := cmd.Flags().GetString("sheet-name")

	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	if rps < 0 {
		return fmt.Errorf("--rps must not be negative")
	}

	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	// Connect to the sheet before spending OCR time.
	var report *sheets.Service
	if sheetURL != "" {
		report, err = sheets.NewSheetsService(ctx, sheetURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to Google Sheets")
			return fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
	}

	engine, err := createEngine(cfg, log)
	if err != nil {
		return err
	}
	engine = ocr.RateLimited(engine, newLimiter(rps))
	client := newClient(cfg, engine, false, log)

	opts := base64plus.DefaultEncodeOptions()
	opts.IncludeConfidence = !noConfidence
	opts.ImageFormat = format

	log.Info().
		Int("images", len(args)).
		Int("concurrency", concurrency).
		Float64("rps", rps).
		Str("out_dir", outDir).
		Str("engine", cfg.OCREngine).
		Msg("Starting batch encode")

	start := time.Now()
	results := encodeBatch(ctx, client, args, outDir, opts, concurrency, failFast)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", r.Image, handleEncodeError(r.Err, log))
			continue
		}
		fmt.Printf("OK   %s -> %s\n", r.Image, r.Output)
	}

	if report != nil {
		if err := report.WriteBatchResults(ctx, toSheetResults(results), sheetName); err != nil {
			log.Error().Err(err).Msg("Failed to write batch report")
			return fmt.Errorf("failed to write batch report: %w", err)
		}
		fmt.Printf("Report appended to sheet %q\n", sheetName)
	}

	log.Info().
		Int("succeeded", len(results)-failed).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch encode completed")

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}

// encodeBatch encodes images with at most limit in flight. Results keep the
// order of images. With failFast the first error cancels the remaining work.
func encodeBatch(ctx context.Context, svc base64plus.Service, images []string, outDir string, opts base64plus.EncodeOptions, limit int, failFast bool) []batchResult {
	results := make([]batchResult, len(images))
	outputs := envelopePaths(outDir, images)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, image := range images {
		i, image := i, image
		g.Go(func() error {
			res := batchResult{Image: image, Output: outputs[i]}
			if err := gctx.Err(); err != nil {
				res.Err = err
			} else if env, err := svc.Encode(gctx, image, opts); err != nil {
				res.Err = err
			} else if err := os.WriteFile(res.Output, []byte(env), 0644); err != nil {
				res.Err = fmt.Errorf("write envelope: %w", err)
			} else if decoded, err := envelope.Decode(env); err == nil {
				res.Format = decoded.Format
				res.Spans = decoded.Spans
			}

			results[i] = res

			if failFast {
				return res.Err
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// envelopePaths maps every image to a distinct .b64p path inside dir. Images
// normally become <stem>.b64p. Stems shared by several images keep their
// extension (scan.png.b64p, scan.jpg.b64p), and names that still clash get a
// numeric suffix (scan.png-2.b64p) in argument order.
func envelopePaths(dir string, images []string) []string {
	stems := make([]string, len(images))
	stemCount := map[string]int{}
	for i, image := range images {
		base := filepath.Base(image)
		stems[i] = strings.TrimSuffix(base, filepath.Ext(base))
		stemCount[strings.ToLower(stems[i])]++
	}

	paths := make([]string, len(images))
	taken := map[string]bool{}
	for i, image := range images {
		name := stems[i]
		if stemCount[strings.ToLower(name)] > 1 {
			name = filepath.Base(image)
		}
		candidate := name
		for n := 2; taken[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s-%d", name, n)
		}
		taken[strings.ToLower(candidate)] = true
		paths[i] = filepath.Join(dir, candidate+models.FileExtension)
	}
	return paths
}

func toSheetResults(results []batchResult) []sheets.BatchResult {
	out := make([]sheets.BatchResult, len(results))
	for i, r := range results {
		out[i] = sheets.BatchResult{
			Filename: r.Image,
			Output:   r.Output,
			Format:   r.Format,
			Spans:    r.Spans,
			Error:    r.Err,
		}
	}
	return out
}

// newLimiter returns a limiter admitting rps sessions per second, or nil for unlimited.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
