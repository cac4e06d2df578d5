//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

func init() {
	RegisterEngine("gosseract", func(cfg Config, _ Runner, logger *slog.Logger) (Engine, error) {
		return &gosseractEngine{cfg: cfg, clientFactory: gosseract.NewClient, logger: logger}, nil
	})
}

// gosseractEngine binds libtesseract in-process through cgo.
type gosseractEngine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

func (e *gosseractEngine) Name() string { return "gosseract" }

func (e *gosseractEngine) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	c := e.clientFactory()
	defer func() {
		if err := c.Close(); err != nil {
			e.logger.Warn("failed to close tesseract client", "error", err)
		}
	}()

	if e.cfg.TessdataDir != "" {
		c.TessdataPrefix = e.cfg.TessdataDir
	}
	if err := c.SetLanguage(e.cfg.TesseractLang); err != nil {
		return Recognition{}, fmt.Errorf("set language: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return Recognition{}, fmt.Errorf("set psm: %w", err)
		}
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.cfg.DPI)); err != nil {
		return Recognition{}, fmt.Errorf("set dpi: %w", err)
	}
	if err := c.SetImage(imagePath); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}

	rec := Recognition{Text: Normalize(text)}
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		var sum float64
		for _, b := range boxes {
			if b.Word == "" {
				continue
			}
			rec.Words++
			sum += b.Confidence
		}
		if rec.Words > 0 {
			rec.Confidence = clampConfidence(sum / float64(rec.Words))
		}
	}
	if lines, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE); err == nil {
		rec.Lines = len(lines)
	}
	return rec, nil
}
