package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/extract"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting for extraction.
type Job struct {
	ID           uuid.UUID
	Path         string
	DocumentType constants.DocumentType
	SHA256       string
	SubmittedAt  time.Time
}

// Result pairs a job with the response the processor produced for it.
type Result struct {
	Job      Job
	Response extract.Response
	Duration time.Duration
	WorkerID int
}

// ResultHandler receives each finished job. It is called from worker
// goroutines and must be safe for concurrent use.
type ResultHandler func(Result)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
