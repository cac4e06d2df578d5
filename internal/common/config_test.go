package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_DefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t, "GRPC_ADDR", "OCR_ENGINE", "OCR_RASTERIZER", "OCR_TEXT_LAYER", "TESSERACT_LANG",
		"TESSDATA_PREFIX", "OCR_WORK_DIR", "BATCH_WORKERS", "OTEL_ENABLED", "OTEL_SERVICE_NAME", "LOG_LEVEL")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "docverify.toml")
	require.NoError(t, os.WriteFile(p, []byte(`
[ocr]
rasterizer = "pdftoppm"
max_pages = 3
tesseract_lang = "eng+hin"

[pipeline]
run_timeout = "45s"

[batch]
workers = 8
`), 0o600))

	clearEnv(t, "OCR_RASTERIZER", "OCR_MAX_PAGES", "TESSERACT_LANG", "PIPELINE_RUN_TIMEOUT", "OCR_ENGINE")
	t.Setenv("BATCH_WORKERS", "4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(p)
	require.NoError(t, err)

	assert.Equal(t, "pdftoppm", cfg.OCR.Rasterizer)
	assert.Equal(t, 3, cfg.OCR.MaxPages)
	assert.Equal(t, "eng+hin", cfg.OCR.TesseractLang)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.RunTimeout)
	assert.Equal(t, 4, cfg.Batch.Workers, "env wins over file")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "tesseract", cfg.OCR.Engine, "untouched keys keep defaults")
}

func TestLoadConfig_Malformed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(p, []byte("[ocr\nengine = "), 0o600))

	_, err := LoadConfig(p)
	require.Error(t, err)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCR.Rasterizer = "imagemagick"
	cfg.OCR.MaxPages = 0
	cfg.Pipeline.RunTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "ocr.rasterizer")
	assert.Contains(t, err.Error(), "ocr.max_pages")
	assert.Contains(t, err.Error(), "pipeline.run_timeout")
}

func TestValidate_MaxPagesCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCR.MaxPages = MaxOCRPages
	require.NoError(t, cfg.Validate())

	cfg.OCR.MaxPages = 10
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.max_pages")
	assert.Contains(t, err.Error(), "must be at most 5")
}

func TestValidateAndReturnError(t *testing.T) {
	err := ValidateAndReturnError(NewValidator().Field("filePath", "", Required))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	assert.NoError(t, ValidateAndReturnError(NewValidator().Field("filePath", "/a.pdf", Required, MaxLength(10))))
}

func TestPageError(t *testing.T) {
	pe := NewPageError(2, ErrOCR, errors.New("boom"))

	assert.Equal(t, "OCR failed: boom", pe.Error())
	assert.ErrorIs(t, pe, ErrOCR)
	assert.NotErrorIs(t, pe, ErrPageConversion)
	assert.Equal(t, "run budget exceeded", NewPageError(3, ErrBudgetExceeded, nil).Error())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("Warning").String())
	assert.Equal(t, "INFO", ParseLevel("bogus").String())
}
