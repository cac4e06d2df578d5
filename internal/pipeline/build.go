package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/ocr"
	"github.com/joseph-ayodele/docverify/internal/workspace"
)

// FromConfig wires the default stages from application config. The returned
// workspace must be closed by the caller on shutdown.
func FromConfig(cfg *common.Config, logger *slog.Logger, opts ...Option) (*Pipeline, *workspace.Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ocrCfg := ocr.ConfigFrom(cfg.OCR)
	runner := ocr.NewExecRunner(logger)

	tl, err := ocr.NewTextLayer(ocrCfg, runner, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("text layer: %w", err)
	}
	rz, err := ocr.NewRasterizer(ocrCfg, runner, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("rasterizer: %w", err)
	}
	engine, err := ocr.NewEngine(ocrCfg, runner, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("ocr engine: %w", err)
	}
	ws, err := workspace.New(cfg.OCR.WorkDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("workspace: %w", err)
	}

	p := NewPipeline(ConfigFrom(cfg.Pipeline, cfg.OCR), tl, rz, engine, ws, logger, opts...)
	logger.Info("pipeline ready",
		"text_layer", ocrCfg.WithDefaults().TextLayer,
		"rasterizer", rz.Name(),
		"engine", engine.Name(),
		"workspace", ws.Dir(),
	)
	return p, ws, nil
}
