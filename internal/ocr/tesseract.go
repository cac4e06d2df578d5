package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

func init() {
	RegisterEngine("tesseract", func(cfg Config, runner Runner, logger *slog.Logger) (Engine, error) {
		if runner == nil {
			runner = NewExecRunner(logger)
		}
		return &tesseractCLI{cfg: cfg, runner: runner, logger: logger}, nil
	})
}

// tesseractCLI runs the tesseract binary in TSV mode, which yields text,
// word confidences and layout in one pass.
type tesseractCLI struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func (t *tesseractCLI) Name() string { return "tesseract" }

func (t *tesseractCLI) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	args := []string{imagePath, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	// TSV output
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w: %s", err, tail(strings.TrimSpace(string(errb)), 512))
	}
	rec := ParseTSV(string(out))
	t.logger.Debug("tesseract ok", "image", imagePath, "words", rec.Words, "lines", rec.Lines, "confidence", rec.Confidence)
	return rec, nil
}

// ParseTSV rebuilds text from tesseract TSV output. Words on a line are joined
// by a space, lines by a newline and paragraphs by a blank line. Confidence is
// the mean word confidence, ignoring rows reported as -1.
func ParseTSV(tsv string) Recognition {
	type lineKey struct{ block, par, line int }
	var (
		b         strings.Builder
		prev      lineKey
		havePrev  bool
		words     int
		lines     int
		sum       float64
		confCount int
	)
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" { // word level
			continue
		}
		word := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		if word == "" {
			continue
		}
		key := lineKey{atoi(cols[2]), atoi(cols[3]), atoi(cols[4])}
		switch {
		case !havePrev:
			lines++
		case key.block != prev.block || key.par != prev.par:
			b.WriteString("\n\n")
			lines++
		case key.line != prev.line:
			b.WriteString("\n")
			lines++
		default:
			b.WriteString(" ")
		}
		b.WriteString(word)
		prev, havePrev = key, true
		words++

		if v, err := strconv.ParseFloat(cols[10], 64); err == nil && v >= 0 {
			sum += v
			confCount++
		}
	}
	var conf float64
	if confCount > 0 {
		conf = sum / float64(confCount)
	}
	return Recognition{
		Text:       Normalize(b.String()),
		Confidence: clampConfidence(conf),
		Words:      words,
		Lines:      lines,
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
