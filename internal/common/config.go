package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConfigPath is read when DOCVERIFY_CONFIG is unset.
const DefaultConfigPath = "docverify.toml"

// MaxOCRPages is the hard ceiling on pages rasterized per document.
const MaxOCRPages = 5

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `toml:"server"`
	OCR           OCRConfig           `toml:"ocr"`
	Pipeline      PipelineConfig      `toml:"pipeline"`
	Batch         BatchConfig         `toml:"batch"`
	Observability ObservabilityConfig `toml:"observability"`
	Log           LogConfig           `toml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `toml:"grpc_addr"`
	// AllowedRoot, when set, restricts Extract to files under this directory.
	AllowedRoot string `toml:"allowed_root"`
}

// OCRConfig holds rasterization and OCR tool configuration
type OCRConfig struct {
	Engine        string `toml:"engine"`     // "tesseract" | "gosseract"
	Rasterizer    string `toml:"rasterizer"` // "gm" | "pdftoppm"
	TextLayer     string `toml:"text_layer"` // "native" | "pdftotext"
	Tesseract     string `toml:"tesseract"`
	TesseractLang string `toml:"tesseract_lang"`
	TessdataDir   string `toml:"tessdata_dir"`
	PSM           int    `toml:"psm"`
	OEM           int    `toml:"oem"`
	GM            string `toml:"gm"`
	Pdftoppm      string `toml:"pdftoppm"`
	Pdftotext     string `toml:"pdftotext"`
	DPI           int    `toml:"dpi"`
	MaxPages      int    `toml:"max_pages"`
	MaxWidth      int    `toml:"max_width"`
	MaxHeight     int    `toml:"max_height"`
	WorkDir       string `toml:"work_dir"`
}

// PipelineConfig holds orchestration policy
type PipelineConfig struct {
	RunTimeout     time.Duration `toml:"run_timeout"`
	DirectMinChars int           `toml:"direct_min_chars"`
}

// BatchConfig holds directory batch configuration
type BatchConfig struct {
	Workers    int  `toml:"workers"`
	QueueSize  int  `toml:"queue_size"`
	SkipHidden bool `toml:"skip_hidden"`
}

// ObservabilityConfig holds OpenTelemetry configuration
type ObservabilityConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{GRPCAddr: ":8080"},
		OCR: OCRConfig{
			Engine:        "tesseract",
			Rasterizer:    "gm",
			TextLayer:     "native",
			Tesseract:     "tesseract",
			TesseractLang: "eng",
			GM:            "gm",
			Pdftoppm:      "pdftoppm",
			Pdftotext:     "pdftotext",
			DPI:           300,
			MaxPages:      MaxOCRPages,
			MaxWidth:      2000,
			MaxHeight:     2000,
		},
		Pipeline: PipelineConfig{
			RunTimeout:     2 * time.Minute,
			DirectMinChars: 100,
		},
		Batch: BatchConfig{
			Workers:    2,
			QueueSize:  64,
			SkipHidden: true,
		},
		Observability: ObservabilityConfig{ServiceName: "docverify"},
		Log:           LogConfig{Level: "info"},
	}
}

// LoadConfig reads config: defaults -> TOML file -> env vars (env wins).
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = getEnv("DOCVERIFY_CONFIG", DefaultConfigPath)
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read %s", path), err)
	}

	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.AllowedRoot = getEnv("DOCVERIFY_ALLOWED_ROOT", cfg.Server.AllowedRoot)

	cfg.OCR.Engine = getEnv("OCR_ENGINE", cfg.OCR.Engine)
	cfg.OCR.Rasterizer = getEnv("OCR_RASTERIZER", cfg.OCR.Rasterizer)
	cfg.OCR.TextLayer = getEnv("OCR_TEXT_LAYER", cfg.OCR.TextLayer)
	cfg.OCR.Tesseract = getEnv("TESSERACT_BIN", cfg.OCR.Tesseract)
	cfg.OCR.TesseractLang = getEnv("TESSERACT_LANG", cfg.OCR.TesseractLang)
	cfg.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", cfg.OCR.TessdataDir)
	cfg.OCR.PSM = getEnvAsInt("TESSERACT_PSM", cfg.OCR.PSM)
	cfg.OCR.OEM = getEnvAsInt("TESSERACT_OEM", cfg.OCR.OEM)
	cfg.OCR.GM = getEnv("GM_BIN", cfg.OCR.GM)
	cfg.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", cfg.OCR.Pdftoppm)
	cfg.OCR.Pdftotext = getEnv("PDFTOTEXT_BIN", cfg.OCR.Pdftotext)
	cfg.OCR.DPI = getEnvAsInt("OCR_DPI", cfg.OCR.DPI)
	cfg.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", cfg.OCR.MaxPages)
	cfg.OCR.WorkDir = getEnv("OCR_WORK_DIR", cfg.OCR.WorkDir)

	cfg.Pipeline.RunTimeout = getEnvAsDuration("PIPELINE_RUN_TIMEOUT", cfg.Pipeline.RunTimeout)
	cfg.Pipeline.DirectMinChars = getEnvAsInt("PIPELINE_DIRECT_MIN_CHARS", cfg.Pipeline.DirectMinChars)

	cfg.Batch.Workers = getEnvAsInt("BATCH_WORKERS", cfg.Batch.Workers)
	cfg.Batch.QueueSize = getEnvAsInt("BATCH_QUEUE_SIZE", cfg.Batch.QueueSize)
	cfg.Batch.SkipHidden = getEnvAsBool("BATCH_SKIP_HIDDEN", cfg.Batch.SkipHidden)

	cfg.Observability.Enabled = getEnvAsBool("OTEL_ENABLED", cfg.Observability.Enabled)
	cfg.Observability.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Observability.ServiceName)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("ocr.engine", c.OCR.Engine, Required, OneOf("tesseract", "gosseract")).
		Field("ocr.rasterizer", c.OCR.Rasterizer, Required, OneOf("gm", "pdftoppm")).
		Field("ocr.text_layer", c.OCR.TextLayer, Required, OneOf("native", "pdftotext")).
		Field("ocr.tesseract_lang", c.OCR.TesseractLang, Required).
		Field("ocr.dpi", c.OCR.DPI, Positive).
		Field("ocr.max_pages", c.OCR.MaxPages, Positive, Max(MaxOCRPages)).
		Field("ocr.max_width", c.OCR.MaxWidth, Positive).
		Field("ocr.max_height", c.OCR.MaxHeight, Positive).
		Field("pipeline.run_timeout", c.Pipeline.RunTimeout, Positive).
		Field("pipeline.direct_min_chars", c.Pipeline.DirectMinChars, Positive).
		Field("batch.workers", c.Batch.Workers, Positive).
		Field("batch.queue_size", c.Batch.QueueSize, NonNegative).
		Field("observability.service_name", c.Observability.ServiceName, Required, MaxLength(128))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
