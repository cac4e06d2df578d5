package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/observability"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file       = flag.String("file", "", "path to the document to verify (required)")
		docType    = flag.String("type", "", "document type: student_id | admission_letter | fee_receipt (required)")
		configPath = flag.String("config", "", "TOML config file (defaults to $DOCVERIFY_CONFIG or docverify.toml)")
		pretty     = flag.Bool("pretty", false, "indent JSON output")
	)
	flag.Parse()

	if *file == "" || *docType == "" {
		printError("Error: --file and --type are required\n")
		flag.Usage()
		os.Exit(2)
	}

	dt, _ := constants.ParseDocumentType(*docType)
	req, _ := json.Marshal(map[string]string{"filePath": *file, "documentType": string(dt)})
	if err := extract.ValidateRequest(req); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	os.Exit(run(*configPath, *file, dt, *pretty))
}

func run(configPath, file string, dt constants.DocumentType, pretty bool) int {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid config: %v\n", err)
		return 1
	}

	// stdout carries the JSON result
	logger := common.NewLogger(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Enabled {
		shutdown, err := observability.Init(ctx, cfg.Observability.ServiceName)
		if err != nil {
			logger.Warn("otel init failed, continuing without export", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
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

	resp := p.Process(ctx, file, dt)

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		logger.Error("write result", "error", err)
		return 1
	}
	if !resp.Success {
		return 1
	}
	return 0
}
