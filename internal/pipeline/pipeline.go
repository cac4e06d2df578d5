// Package pipeline sequences direct text extraction, rasterization, OCR, page
// aggregation and heuristic analysis into one request-scoped run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/analysis"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/observability"
	"github.com/joseph-ayodele/docverify/internal/ocr"
	"github.com/joseph-ayodele/docverify/internal/workspace"
)

// Config holds the fallback policy and run budget.
type Config struct {
	MaxPages       int           // pages sent through OCR, default 5
	DirectMinChars int           // trimmed text layer must exceed this, default 100
	RunTimeout     time.Duration // wall-clock budget per run, default 2m
}

// ConfigFrom maps application config onto a pipeline Config.
func ConfigFrom(p common.PipelineConfig, o common.OCRConfig) Config {
	return Config{
		MaxPages:       o.MaxPages,
		DirectMinChars: p.DirectMinChars,
		RunTimeout:     p.RunTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 || c.MaxPages > common.MaxOCRPages {
		c.MaxPages = common.MaxOCRPages
	}
	if c.DirectMinChars <= 0 {
		c.DirectMinChars = 100
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 2 * time.Minute
	}
	return c
}

type Pipeline struct {
	cfg        Config
	textLayer  ocr.TextLayer
	rasterizer ocr.Rasterizer
	engine     ocr.Engine
	workspace  *workspace.Workspace
	analyzer   *analysis.Analyzer
	inst       *observability.Instruments
	logger     *slog.Logger
}

type Option func(*Pipeline)

// WithAnalyzer overrides the heuristic field extractor.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// WithInstruments overrides the OTEL instruments.
func WithInstruments(inst *observability.Instruments) Option {
	return func(p *Pipeline) {
		if inst != nil {
			p.inst = inst
		}
	}
}

// NewPipeline wires the stages. The workspace is owned by the caller, who must
// Close it on shutdown.
func NewPipeline(
	cfg Config,
	tl ocr.TextLayer,
	rz ocr.Rasterizer,
	engine ocr.Engine,
	ws *workspace.Workspace,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		cfg:        cfg.withDefaults(),
		textLayer:  tl,
		rasterizer: rz,
		engine:     engine,
		workspace:  ws,
		analyzer:   analysis.New(),
		logger:     logger,
	}
	for _, o := range opts {
		o(p)
	}
	if p.inst == nil {
		inst, err := observability.NewInstruments()
		if err != nil {
			logger.Warn("otel instruments unavailable", "error", err)
		}
		p.inst = inst
	}
	return p
}

// Process runs one extraction request end to end. It never panics and never
// returns an error: whole-document faults come back as a Response with
// Success=false.
func (p *Pipeline) Process(ctx context.Context, path string, docType constants.DocumentType) (resp extract.Response) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	ctx, span := p.startSpan(ctx, "docverify.process",
		attribute.String("run_id", runID),
		attribute.String("document_type", string(docType)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", common.ErrInternal, r)
			p.logger.Error("extraction panicked", "run_id", runID, "path", path, "panic", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.enterState(runID, stateFailed)
			resp = extract.Failure(runID, err)
		}
		p.recordRun(ctx, resp, time.Since(start))
	}()

	p.logger.Info("processing document", "run_id", runID, "path", path, "document_type", docType)

	res, err := p.extract(ctx, runID, path)
	if err != nil {
		p.logger.Error("error processing document", "run_id", runID, "path", path, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.enterState(runID, stateFailed)
		return extract.Failure(runID, err)
	}

	p.enterState(runID, stateAnalyzing)
	a := p.analyzer.Analyze(res.Text, docType)
	span.SetAttributes(
		attribute.String("method", string(res.Method)),
		attribute.Int("pages", res.PageCount),
		attribute.Int("processed_pages", res.ProcessedPageCount),
		attribute.Float64("confidence", res.Confidence),
	)
	p.enterState(runID, stateDone)

	p.logger.Info("document processed",
		"run_id", runID,
		"method", res.Method,
		"pages", res.PageCount,
		"processed_pages", res.ProcessedPageCount,
		"confidence", res.Confidence,
		"confidence_flag", a.ConfidenceLevel,
		"fields", len(a.DetectedFields),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return extract.Response{
		Success:             true,
		RunID:               runID,
		ExtractedText:       res.Text,
		TextLength:          a.TextLength,
		Confidence:          res.Confidence,
		WordCount:           a.WordCount,
		LineCount:           res.LineCount,
		HasContent:          a.HasContent,
		DetectedInstitution: a.DetectedInstitution,
		DetectedFields:      a.DetectedFields,
		ConfidenceFlag:      string(a.ConfidenceLevel),
		Pages:               res.PageCount,
		ProcessedPages:      res.ProcessedPageCount,
		Method:              res.Method,
		PageOutcomes:        res.Pages,
		Capabilities:        res.Capabilities,
		Diagnostics:         res.Diagnostics,
		ProcessingTime:      time.Now().UTC().Format(time.RFC3339),
	}
}

// Extract runs only the text stage. Whole-document faults are returned as
// errors wrapping common.ErrParse or common.ErrUnsupportedFormat.
func (p *Pipeline) Extract(ctx context.Context, path string) (extract.ExtractionResult, error) {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = common.WithRunID(ctx, runID)
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()
	return p.extract(ctx, runID, path)
}

func (p *Pipeline) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p.inst == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.inst.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (p *Pipeline) recordRun(ctx context.Context, resp extract.Response, d time.Duration) {
	if p.inst == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", string(resp.Method)),
		attribute.Bool("success", resp.Success),
	)
	p.inst.Runs.Add(ctx, 1, attrs)
	p.inst.RunDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	p.inst.EmitRun(ctx, resp.RunID, string(resp.Method), resp.Success, resp.Confidence, resp.Pages, resp.ProcessedPages, float64(d.Milliseconds()))
}

func (p *Pipeline) recordPage(ctx context.Context, outcome string) {
	if p.inst == nil {
		return
	}
	p.inst.Pages.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
