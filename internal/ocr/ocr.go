// Package ocr wraps the external capabilities the extraction pipeline relies on:
// reading a PDF text layer, rasterizing pages and recognizing text in bitmaps.
package ocr

import "github.com/joseph-ayodele/docverify/internal/common"

type Config struct {
	Engine     string // "tesseract" | "gosseract"; default "tesseract"
	Rasterizer string // "gm" | "pdftoppm"; default "gm"
	TextLayer  string // "native" | "pdftotext"; default "native"

	GM        string // binary name or absolute path; if empty -> "gm"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g., 6 is good for uniform block of text
	OEM           int // 1 = LSTM; leave 0 to use default

	DPI       int // rasterization DPI, default 300
	MaxWidth  int // bitmap cap, default 2000
	MaxHeight int // bitmap cap, default 2000
}

// ConfigFrom maps the application OCR section onto a Config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Engine:        c.Engine,
		Rasterizer:    c.Rasterizer,
		TextLayer:     c.TextLayer,
		GM:            c.GM,
		Pdftoppm:      c.Pdftoppm,
		Pdftotext:     c.Pdftotext,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		PSM:           c.PSM,
		OEM:           c.OEM,
		DPI:           c.DPI,
		MaxWidth:      c.MaxWidth,
		MaxHeight:     c.MaxHeight,
	}
}

// WithDefaults fills every zero field.
func (cfg Config) WithDefaults() Config {
	if cfg.Engine == "" {
		cfg.Engine = "tesseract"
	}
	if cfg.Rasterizer == "" {
		cfg.Rasterizer = "gm"
	}
	if cfg.TextLayer == "" {
		cfg.TextLayer = "native"
	}
	if cfg.GM == "" {
		cfg.GM = "gm"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 2000
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = 2000
	}
	return cfg
}
