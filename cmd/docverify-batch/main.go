package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/async"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/export"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/ingest"
	"github.com/joseph-ayodele/docverify/internal/observability"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type options struct {
	dir         string
	out         string
	defaultType constants.DocumentType
	configPath  string
	workers     int
	watch       bool
	debounce    time.Duration
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to scan for proof documents (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		docType    = flag.String("type", "", "document type for files not under a type-named directory")
		configPath = flag.String("config", "", "TOML config file (defaults to $DOCVERIFY_CONFIG or docverify.toml)")
		workers    = flag.Int("workers", 0, "number of concurrent extractions (overrides config)")
		watch      = flag.Bool("watch", false, "keep running and process files as they appear; report is written on exit")
		debounce   = flag.Duration("debounce", 500*time.Millisecond, "coalesce file events in watch mode")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(2)
	}
	var fallback constants.DocumentType
	if *docType != "" {
		dt, ok := constants.ParseDocumentType(*docType)
		if !ok {
			printError("Error: unknown --type %q (want one of %v)\n", *docType, constants.DocumentTypesAsStrings())
			os.Exit(2)
		}
		fallback = dt
	}

	// If output file not specified, use parent directory with default filename
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "docverify-review.xlsx")
	}

	os.Exit(run(options{
		dir:         *dir,
		out:         *out,
		defaultType: fallback,
		configPath:  *configPath,
		workers:     *workers,
		watch:       *watch,
		debounce:    *debounce,
	}))
}

// collector keeps report rows in submission order.
type collector struct {
	mu    sync.Mutex
	order []string
	rows  map[string]export.Row
}

func newCollector() *collector {
	return &collector{rows: map[string]export.Row{}}
}

func (c *collector) add(row export.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[row.Path]; !ok {
		c.order = append(c.order, row.Path)
	}
	c.rows[row.Path] = row
}

func (c *collector) setResponse(path string, resp extract.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row := c.rows[path]
	row.Response = resp
	c.rows[path] = row
}

func (c *collector) snapshot() []export.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]export.Row, 0, len(c.order))
	for _, p := range c.order {
		out = append(out, c.rows[p])
	}
	return out
}

func run(opts options) int {
	cfg, err := common.LoadConfig(opts.configPath)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if opts.workers > 0 {
		cfg.Batch.Workers = opts.workers
	}
	logger := common.NewLogger(os.Stdout, cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Enabled {
		shutdown, err := observability.Init(ctx, cfg.Observability.ServiceName)
		if err != nil {
			logger.Warn("otel init failed, continuing without export", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(sctx); err != nil {
					logger.Warn("otel shutdown", "error", err)
				}
			}()
		}
	}

	p, ws, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("workspace close", "error", err)
		}
	}()

	rows := newCollector()
	q := async.NewProcessorQueue(p, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.RunTimeout+30*time.Second),
		async.WithResultHandler(func(r async.Result) {
			rows.setResponse(r.Job.Path, r.Response)
		}),
	)

	ing := ingest.NewFSIngestor(opts.dir, opts.defaultType, logger)
	submit := func(res ingest.IngestionResult) {
		row := export.Row{
			Path:         res.SourcePath,
			DocumentType: res.DocumentType,
			SHA256:       res.HashHex,
			DuplicateOf:  res.DuplicateOf,
		}
		switch {
		case res.Err != "":
			row.Response = extract.Failure("", fmt.Errorf("%s", res.Err))
			rows.add(row)
			return
		case res.Deduplicated:
			rows.add(row)
			return
		case res.DocumentType == "":
			row.Response = extract.Failure("", fmt.Errorf("%w: no document type for %s (use --type or a type-named directory)", common.ErrInvalidInput, res.SourcePath))
			rows.add(row)
			return
		}
		rows.add(row)
		if err := q.Enqueue(ctx, async.Job{Path: res.SourcePath, DocumentType: res.DocumentType, SHA256: res.HashHex}); err != nil {
			rows.setResponse(res.SourcePath, extract.Failure("", err))
		}
	}

	results, stats, err := ing.IngestDirectory(ctx, opts.dir, cfg.Batch.SkipHidden)
	if err != nil {
		logger.Error("scan failed", "dir", opts.dir, "error", err)
	}
	for _, res := range results {
		submit(res)
	}
	logger.Info("batch submitted", "matched", stats.Matched, "deduplicated", stats.Deduplicated, "failed", stats.Failed)

	if opts.watch {
		watchLoop(ctx, logger, opts, cfg.Batch.SkipHidden, ing, submit)
	}

	// Drain outstanding work. A second signal aborts the wait.
	drainCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	q.Shutdown(drainCtx)
	cancel()

	return writeReport(ctx, logger, opts.out, rows.snapshot())
}

func watchLoop(ctx context.Context, logger *slog.Logger, opts options, skipHidden bool, ing *ingest.FSIngestor, submit func(ingest.IngestionResult)) {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:      []string{opts.dir},
		SkipHidden: skipHidden,
		Debounce:   opts.debounce,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("watcher failed to start", "error", err)
		return
	}
	logger.Info("watching for new documents", "dir", opts.dir)
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return
			}
			res, err := ing.IngestPath(ctx, path)
			if err != nil {
				res = ingest.IngestionResult{SourcePath: path, Err: err.Error()}
			}
			submit(res)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func writeReport(ctx context.Context, logger *slog.Logger, out string, rows []export.Row) int {
	// the run context may already be cancelled by a signal; the report is still written
	ctx = context.WithoutCancel(ctx)
	data, err := export.NewService(logger).ExportReviewXLSX(ctx, rows)
	if err != nil {
		logger.Error("export failed", "error", err)
		return 1
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		logger.Error("write report", "path", out, "error", err)
		return 1
	}

	failed := 0
	for _, r := range rows {
		if r.DuplicateOf == "" && !r.Response.Success {
			failed++
		}
	}
	logger.Info("review report written", "path", out, "documents", len(rows), "failed", failed)
	return 0
}
