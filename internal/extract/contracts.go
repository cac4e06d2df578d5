package extract

import (
	"context"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
)

// TextExtractor is stage 1: file -> text + confidence.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ExtractionResult, error)
}

// Processor is the full request-scoped run: file + type -> Response. It never fails;
// faults are reported inside the Response.
type Processor interface {
	Process(ctx context.Context, path string, docType constants.DocumentType) Response
}

// PageOutcome is the result of rasterizing and recognizing one page.
type PageOutcome struct {
	PageNumber int      `json:"pageNumber"`
	Text       *string  `json:"text,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Err        string   `json:"error,omitempty"`
	Words      int      `json:"-"`
	Lines      int      `json:"-"`
}

// Contributed reports whether the page produced usable recognized text.
func (p PageOutcome) Contributed() bool {
	return p.Err == "" && p.Text != nil && strings.TrimSpace(*p.Text) != ""
}

// Capability describes whether an optional external tool can be used.
type Capability struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Available returns a usable capability.
func Available(name string) Capability {
	return Capability{Name: name, Available: true}
}

// Unavailable returns a capability that cannot be used, with the reason.
func Unavailable(name, reason string) Capability {
	return Capability{Name: name, Available: false, Reason: reason}
}

// ExtractionResult is the text-level outcome for one document.
type ExtractionResult struct {
	Text               string
	Confidence         float64 // 0..100
	PageCount          int
	ProcessedPageCount int
	Method             constants.Method
	WordCount          int
	LineCount          int
	Pages              []PageOutcome
	Capabilities       []Capability
	Diagnostics        []string
	Duration           time.Duration
}

// Response is the single object handed back across the pipeline boundary.
type Response struct {
	Success             bool              `json:"success"`
	Error               string            `json:"error,omitempty"`
	RunID               string            `json:"runId,omitempty"`
	ExtractedText       string            `json:"extractedText"`
	TextLength          int               `json:"textLength"`
	Confidence          float64           `json:"confidence"`
	WordCount           int               `json:"wordCount"`
	LineCount           int               `json:"lineCount"`
	HasContent          bool              `json:"hasContent"`
	DetectedInstitution *string           `json:"detectedInstitution"`
	DetectedFields      map[string]string `json:"detectedInfo"`
	ConfidenceFlag      string            `json:"confidenceFlag,omitempty"`
	Pages               int               `json:"pages,omitempty"`
	ProcessedPages      int               `json:"processedPages"`
	Method              constants.Method  `json:"method,omitempty"`
	PageOutcomes        []PageOutcome     `json:"pageOutcomes,omitempty"`
	Capabilities        []Capability      `json:"capabilities,omitempty"`
	Diagnostics         []string          `json:"diagnostics,omitempty"`
	ProcessingTime      string            `json:"processingTime,omitempty"`
}

// Failure builds the response for a whole-document fault.
func Failure(runID string, err error) Response {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Response{
		Success:        false,
		Error:          msg,
		RunID:          runID,
		ExtractedText:  "",
		Confidence:     0,
		DetectedFields: map[string]string{},
		ProcessingTime: time.Now().UTC().Format(time.RFC3339),
	}
}
