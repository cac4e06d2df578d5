package ingest

import (
	"context"

	"github.com/joseph-ayodele/docverify/constants"
)

// IngestionResult is the per-file discovery outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentType constants.DocumentType
	Deduplicated bool
	DuplicateOf  string
	HashHex      string
	FileExt      string
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor discovers proof documents on disk.
type Ingestor interface {
	// IngestPath hashes and classifies a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
