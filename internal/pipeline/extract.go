package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/extract"
)

// extract is the text stage shared by Process and Extract.
func (p *Pipeline) extract(ctx context.Context, runID, path string) (extract.ExtractionResult, error) {
	start := time.Now()
	p.enterState(runID, stateStart)

	ext := filepath.Ext(path)
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return extract.ExtractionResult{}, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, strings.ToLower(ext))
	}
	if _, err := os.Stat(path); err != nil {
		return extract.ExtractionResult{}, fmt.Errorf("%w: %w", common.ErrParse, err)
	}

	var (
		res extract.ExtractionResult
		err error
	)
	switch format {
	case constants.PDF:
		res, err = p.extractPDF(ctx, runID, path)
	case constants.IMAGE:
		res, err = p.extractImage(ctx, runID, path)
	}
	if err != nil {
		return extract.ExtractionResult{}, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (p *Pipeline) extractPDF(ctx context.Context, runID, path string) (extract.ExtractionResult, error) {
	layer, err := p.textLayer.Read(ctx, path)
	if err != nil {
		if kind := interruption(ctx); kind != nil {
			return extract.ExtractionResult{}, fmt.Errorf("%w: %w", kind, ctx.Err())
		}
		return extract.ExtractionResult{}, err
	}
	p.enterState(runID, stateDirectAttempted)

	if len(strings.TrimSpace(layer.Text)) > p.cfg.DirectMinChars {
		p.logger.Info("using embedded text layer", "run_id", runID, "path", path, "pages", layer.Pages, "chars", len(layer.Text))
		return extract.ExtractionResult{
			Text:       layer.Text,
			Confidence: constants.DirectConfidence,
			PageCount:  layer.Pages,
			Method:     constants.MethodDirect,
			WordCount:  len(strings.Fields(layer.Text)),
			LineCount:  countLines(layer.Text),
		}, nil
	}

	p.enterState(runID, stateRasterizationCheck)
	capability := p.rasterizer.Detect(ctx)
	if !capability.Available {
		p.logger.Warn("rasterizer unavailable, returning embedded text only",
			"run_id", runID, "rasterizer", capability.Name, "reason", capability.Reason)
		return extract.ExtractionResult{
			Text:         layer.Text,
			Confidence:   constants.PartialConfidence,
			PageCount:    layer.Pages,
			Method:       constants.MethodPartial,
			WordCount:    len(strings.Fields(layer.Text)),
			LineCount:    countLines(layer.Text),
			Capabilities: []extract.Capability{capability},
			Diagnostics:  []string{fmt.Sprintf("%s: %s", common.ErrMissingDependency, capability.Reason)},
		}, nil
	}

	p.enterState(runID, statePageLoop)
	limit := min(layer.Pages, p.cfg.MaxPages)
	p.logger.Info("converting PDF pages to images", "run_id", runID, "path", path, "pages", layer.Pages, "limit", limit)

	pages := make([]extract.PageOutcome, 0, limit)
	var diagnostics []string
	for n := 1; n <= limit; n++ {
		if kind := interruption(ctx); kind != nil {
			pe := common.NewPageError(n, kind, nil)
			pages = append(pages, extract.PageOutcome{PageNumber: n, Err: pe.Error()})
			diagnostics = append(diagnostics, fmt.Sprintf("page %d: %s", n, pe.Error()))
			if errors.Is(kind, common.ErrBudgetExceeded) {
				p.recordPage(ctx, "budget_exceeded")
			} else {
				p.recordPage(ctx, "cancelled")
			}
			continue
		}
		outcome, pe := p.processPage(ctx, runID, path, n)
		if pe != nil {
			p.logger.Warn("error processing page", "run_id", runID, "page", n, "error", pe)
			outcome = extract.PageOutcome{PageNumber: n, Err: pe.Error()}
			diagnostics = append(diagnostics, fmt.Sprintf("page %d: %s", n, pe.Error()))
			p.recordPage(ctx, "failed")
		} else {
			p.recordPage(ctx, "ok")
		}
		pages = append(pages, outcome)
	}

	p.enterState(runID, stateAggregating)
	agg := aggregate(pages)
	return extract.ExtractionResult{
		Text:               agg.Text,
		Confidence:         agg.Confidence,
		PageCount:          layer.Pages,
		ProcessedPageCount: agg.Processed,
		Method:             constants.MethodOCR,
		WordCount:          agg.Words,
		LineCount:          agg.Lines,
		Pages:              pages,
		Capabilities:       []extract.Capability{capability},
		Diagnostics:        diagnostics,
	}, nil
}

// processPage rasterizes and recognizes one page. The bitmap is released
// before returning on every path.
func (p *Pipeline) processPage(ctx context.Context, runID, path string, page int) (extract.PageOutcome, *common.PageError) {
	out, err := p.workspace.NewPagePath(runID, page, "png")
	if err != nil {
		return extract.PageOutcome{}, common.NewPageError(page, common.ErrPageConversion, err)
	}
	defer p.workspace.Release(out)

	img, err := p.rasterizer.Rasterize(ctx, path, page, out)
	if img != "" && img != out {
		defer p.workspace.Release(img)
	}
	if err != nil {
		return extract.PageOutcome{}, p.pageError(ctx, page, common.ErrPageConversion, err)
	}

	rec, err := p.engine.Recognize(ctx, img)
	if err != nil {
		return extract.PageOutcome{}, p.pageError(ctx, page, common.ErrOCR, err)
	}

	text := rec.Text
	conf := clamp(rec.Confidence)
	return extract.PageOutcome{
		PageNumber: page,
		Text:       &text,
		Confidence: &conf,
		Words:      rec.Words,
		Lines:      rec.Lines,
	}, nil
}

// pageError attributes a stage failure to the budget or to cancellation when
// the run context ended it.
func (p *Pipeline) pageError(ctx context.Context, page int, kind, err error) *common.PageError {
	if k := interruption(ctx); k != nil {
		return common.NewPageError(page, k, err)
	}
	return common.NewPageError(page, kind, err)
}

// interruption maps an ended run context to ErrBudgetExceeded (deadline) or
// ErrCanceled (caller cancelled). It returns nil while ctx is live.
func interruption(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrBudgetExceeded
	default:
		return common.ErrCanceled
	}
}

func (p *Pipeline) extractImage(ctx context.Context, runID, path string) (extract.ExtractionResult, error) {
	p.logger.Info("processing image with OCR", "run_id", runID, "path", path, "engine", p.engine.Name())
	rec, err := p.engine.Recognize(ctx, path)
	if err != nil {
		return extract.ExtractionResult{}, fmt.Errorf("%w: %w", common.ErrOCR, err)
	}

	text := rec.Text
	conf := clamp(rec.Confidence)
	outcome := extract.PageOutcome{PageNumber: 1, Text: &text, Confidence: &conf, Words: rec.Words, Lines: rec.Lines}
	processed := 0
	if outcome.Contributed() {
		processed = 1
	}
	return extract.ExtractionResult{
		Text:               text,
		Confidence:         conf,
		PageCount:          1,
		ProcessedPageCount: processed,
		Method:             constants.MethodOCR,
		WordCount:          len(strings.Fields(text)),
		LineCount:          rec.Lines,
		Pages:              []extract.PageOutcome{outcome},
	}, nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
