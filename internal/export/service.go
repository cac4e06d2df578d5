package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/extract"
)

const (
	reviewSheet = "Review"
	fieldsSheet = "Fields"
)

// Row is one document in a batch review report.
type Row struct {
	Path         string
	DocumentType constants.DocumentType
	SHA256       string
	DuplicateOf  string
	Response     extract.Response
}

// Service produces XLSX review reports for a batch of extraction responses.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportReviewXLSX returns an XLSX workbook (as bytes) with one row per
// document on the Review sheet and one row per detected field on the Fields
// sheet. Rows keep the order given.
func (s *Service) ExportReviewXLSX(ctx context.Context, rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", reviewSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(reviewSheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"File Path",
		"Document Type",
		"Status",
		"Method",
		"Confidence",
		"Confidence Flag",
		"Pages",
		"Processed Pages",
		"Institution",
		"Detected Fields",
		"Error",
		"SHA-256",
		"Processed At",
	}
	if err := writeRow(f, reviewSheet, 1, toAny(headers)); err != nil {
		return nil, err
	}
	if err := writeRow(f, fieldsSheet, 1, []any{"File Path", "Document Type", "Field", "Value"}); err != nil {
		return nil, err
	}

	row, fieldRow := 2, 2
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp := r.Response

		status := "ok"
		switch {
		case r.DuplicateOf != "":
			status = "duplicate"
		case !resp.Success:
			status = "failed"
		}

		institution := ""
		if resp.DetectedInstitution != nil {
			institution = *resp.DetectedInstitution
		}

		keys := make([]string, 0, len(resp.DetectedFields))
		for k := range resp.DetectedFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+resp.DetectedFields[k])
			if err := writeRow(f, fieldsSheet, fieldRow, []any{r.Path, string(r.DocumentType), k, resp.DetectedFields[k]}); err != nil {
				return nil, err
			}
			fieldRow++
		}

		errMsg := resp.Error
		if r.DuplicateOf != "" {
			errMsg = "duplicate of " + r.DuplicateOf
		}

		values := []any{
			r.Path,
			string(r.DocumentType),
			status,
			string(resp.Method),
			resp.Confidence,
			resp.ConfidenceFlag,
			resp.Pages,
			resp.ProcessedPages,
			truncate(institution, 150),
			strings.Join(pairs, "; "),
			truncate(errMsg, 200),
			r.SHA256,
			resp.ProcessingTime,
		}
		if err := writeRow(f, reviewSheet, row, values); err != nil {
			return nil, err
		}
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(reviewSheet, "A", "A", 60) // path
	_ = f.SetColWidth(reviewSheet, "B", "D", 16)
	_ = f.SetColWidth(reviewSheet, "E", "H", 12)
	_ = f.SetColWidth(reviewSheet, "I", "J", 40)
	_ = f.SetColWidth(reviewSheet, "K", "K", 48) // error
	_ = f.SetColWidth(reviewSheet, "L", "L", 66) // hash
	_ = f.SetColWidth(reviewSheet, "M", "M", 22)
	_ = f.SetColWidth(fieldsSheet, "A", "A", 60)
	_ = f.SetColWidth(fieldsSheet, "B", "D", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"fields", fieldRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
