package sheets

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"base64plus/internal/logger"
	"base64plus/pkg/models"
)

// DefaultSheetName is the tab batch reports are appended to.
const DefaultSheetName = "Base64Plus"

// maxTextPreview caps the recognized-text column, in runes.
const maxTextPreview = 200

var headers = []interface{}{
	"File", "Envelope", "Format", "Spans", "Mean confidence", "Text", "Status", "Error", "Processed",
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Service appends batch encode reports to a Google Sheet
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// BatchResult is the outcome of encoding one image.
type BatchResult struct {
	Filename string
	Output   string
	Format   string
	Spans    []models.TextSpan
	Error    error
}

// BatchRow represents a row to be written to the sheet
type BatchRow struct {
	Filename       string
	Envelope       string
	Format         string
	SpanCount      int
	MeanConfidence string
	Text           string
	Status         string
	Error          string
	ProcessedAt    string
}

// NewSheetsService creates a new Google Sheets service for the sheet at sheetURL.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS, GOOGLE_CREDENTIALS or
// Application Default Credentials, in that order.
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	client, err := httpClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

func httpClient(ctx context.Context) (*http.Client, error) {
	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		data, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds = data
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	}

	if creds == nil {
		client, err := google.DefaultClient(ctx, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("no Google credentials found: %w", err)
		}
		return client, nil
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return config.Client(ctx), nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A bare ID is accepted as is.
func extractSpreadsheetID(url string) (string, error) {
	if matches := spreadsheetIDPattern.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}
	if id := strings.TrimSpace(url); id != "" && !strings.ContainsAny(id, "/:?") {
		return id, nil
	}
	return "", fmt.Errorf("invalid Google Sheets URL format")
}

// WriteBatchResults appends one row per result to sheetName, creating the tab
// and its header row when missing.
func (s *Service) WriteBatchResults(ctx context.Context, results []BatchResult, sheetName string) error {
	const op = "WriteBatchResults"

	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(results)).
		Msg("Writing batch results to Google Sheet")

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	var values [][]interface{}
	for _, row := range convertResultsToRows(results, time.Now()) {
		values = append(values, rowToValues(row))
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		sheetName+"!"+columnRange(),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote batch results to Google Sheet")

	return nil
}

// convertResultsToRows converts results to sheet rows stamped with processedAt.
func convertResultsToRows(results []BatchResult, processedAt time.Time) []BatchRow {
	stamp := processedAt.Format("2006-01-02 15:04:05")
	rows := make([]BatchRow, 0, len(results))

	for _, result := range results {
		row := BatchRow{
			Filename:    result.Filename,
			ProcessedAt: stamp,
		}

		if result.Error != nil {
			row.Status = "failed"
			row.Error = result.Error.Error()
			rows = append(rows, row)
			continue
		}

		row.Status = "ok"
		row.Envelope = result.Output
		row.Format = result.Format
		row.SpanCount = len(result.Spans)
		row.MeanConfidence = meanConfidence(result.Spans)
		row.Text = textPreview(result.Spans)
		rows = append(rows, row)
	}

	return rows
}

// rowToValues converts BatchRow to interface{} slice for Google Sheets
func rowToValues(row BatchRow) []interface{} {
	return []interface{}{
		row.Filename,       // A
		row.Envelope,       // B
		row.Format,         // C
		row.SpanCount,      // D
		row.MeanConfidence, // E
		row.Text,           // F
		row.Status,         // G
		row.Error,          // H
		row.ProcessedAt,    // I
	}
}

// meanConfidence averages the spans that carry a score; "" when none do.
func meanConfidence(spans []models.TextSpan) string {
	var sum float64
	n := 0
	for _, s := range spans {
		if s.Confidence != nil {
			sum += *s.Confidence
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%.3f", sum/float64(n))
}

func textPreview(spans []models.TextSpan) string {
	words := make([]string, 0, len(spans))
	for _, s := range spans {
		words = append(words, s.Text)
	}
	text := []rune(strings.Join(words, " "))
	if len(text) > maxTextPreview {
		return string(text[:maxTextPreview]) + "…"
	}
	return string(text)
}

func columnRange() string {
	last := rune('A' + len(headers) - 1)
	return fmt.Sprintf("A:%c", last)
}

// ensureSheetWithHeaders ensures the sheet exists and has proper headers
func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
			},
		}

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:%c1", sheetName, rune('A'+len(headers)-1))
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

		_, err = s.sheetsService.Spreadsheets.Values.Update(
			s.spreadsheetID,
			headerRange,
			&sheets.ValueRange{Values: [][]interface{}{headers}},
		).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to add headers: %w", op, err)
		}

		if err := s.formatHeaders(ctx, sheetID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	return nil
}

// formatHeaders makes the header row bold and auto-sizes the columns
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	columns := int64(len(headers))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}

	return nil
}
