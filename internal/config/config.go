package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"base64plus/internal/annotate"
	"base64plus/internal/logger"
	"base64plus/internal/ocr"
)

type Config struct {
	// OCR Configuration
	OCREngine     string
	OCRLanguages  []string
	MinConfidence float64

	// Image Processing Configuration
	ImageProcessing bool // re-encode into the resolved format; false trusts the label
	JPEGQuality     int

	// Annotation Configuration
	AnnotateColor       color.NRGBA
	AnnotateFillOpacity float64
	AnnotateStroke      int

	// Google Cloud Configuration (vision and documentai engines)
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		OCREngine:           ocr.EngineAuto,
		OCRLanguages:        []string{"eng"},
		MinConfidence:       ocr.DefaultMinConfidence,
		ImageProcessing:     true,
		JPEGQuality:         90,
		AnnotateColor:       color.NRGBA{R: 255, A: 255},
		AnnotateFillOpacity: 0.2,
		AnnotateStroke:      2,
		GoogleCloudLocation: "us",
		LogLevel:            "info",
		LogFormat:           "console",
		LogTimeFormat:       "2006-01-02T15:04:05Z07:00",
		LogOutput:           "stderr",
	}
}

func Load() (*Config, error) {
	d := Default()

	config := &Config{
		OCREngine:                  getEnv("B64P_OCR_ENGINE", d.OCREngine),
		OCRLanguages:               splitList(getEnv("B64P_OCR_LANGUAGES", strings.Join(d.OCRLanguages, ","))),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", d.GoogleCloudLocation),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		LogLevel:                   getEnv("LOG_LEVEL", d.LogLevel),
		LogFormat:                  getEnv("LOG_FORMAT", d.LogFormat),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", d.LogTimeFormat),
		LogOutput:                  getEnv("LOG_OUTPUT", d.LogOutput),
	}

	var err error
	if config.MinConfidence, err = getFloat("B64P_MIN_CONFIDENCE", d.MinConfidence); err != nil {
		return nil, err
	}
	if config.ImageProcessing, err = getBool("B64P_IMAGE_PROCESSING", d.ImageProcessing); err != nil {
		return nil, err
	}
	if config.JPEGQuality, err = getInt("B64P_JPEG_QUALITY", d.JPEGQuality); err != nil {
		return nil, err
	}
	if config.AnnotateFillOpacity, err = getFloat("B64P_ANNOTATE_FILL_OPACITY", d.AnnotateFillOpacity); err != nil {
		return nil, err
	}
	if config.AnnotateStroke, err = getInt("B64P_ANNOTATE_STROKE", d.AnnotateStroke); err != nil {
		return nil, err
	}
	config.AnnotateColor = d.AnnotateColor
	if hex := os.Getenv("B64P_ANNOTATE_COLOR"); hex != "" {
		if config.AnnotateColor, err = ParseHexColor(hex); err != nil {
			return nil, fmt.Errorf("B64P_ANNOTATE_COLOR: %w", err)
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("B64P_MIN_CONFIDENCE must be within [0, 1], got %v", c.MinConfidence)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("B64P_JPEG_QUALITY must be within [1, 100], got %d", c.JPEGQuality)
	}
	if c.AnnotateFillOpacity < 0 || c.AnnotateFillOpacity > 1 {
		return fmt.Errorf("B64P_ANNOTATE_FILL_OPACITY must be within [0, 1], got %v", c.AnnotateFillOpacity)
	}
	if c.AnnotateStroke < 0 {
		return fmt.Errorf("B64P_ANNOTATE_STROKE must not be negative")
	}
	if strings.EqualFold(c.OCREngine, ocr.EngineDocumentAI) {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai engine")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai engine")
		}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetEngineConfig returns the OCR engine selection from the main config
func (c *Config) GetEngineConfig() ocr.EngineConfig {
	return ocr.EngineConfig{
		Name:      c.OCREngine,
		Languages: c.OCRLanguages,
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:        c.GoogleCloudProject,
			Location:         c.GoogleCloudLocation,
			ProcessorID:      c.DocumentAIProcessorID,
			ProcessorVersion: c.DocumentAIProcessorVersion,
		},
	}
}

// GetAnnotateStyle returns the overlay style from the main config
func (c *Config) GetAnnotateStyle() annotate.Style {
	fill := c.AnnotateColor
	fill.A = uint8(c.AnnotateFillOpacity*255 + 0.5)
	return annotate.Style{
		Outline:     c.AnnotateColor,
		Fill:        fill,
		StrokeWidth: c.AnnotateStroke,
	}
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB" into an opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("expected #RRGGBB, got %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '+' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
