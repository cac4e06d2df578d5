package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/docverify/internal/common"
)

// TextLayerResult is the embedded text of a PDF and its page count.
type TextLayerResult struct {
	Text  string
	Pages int
}

// TextLayer reads text already embedded in a PDF. A document that cannot be
// opened at all yields an error wrapping common.ErrParse.
type TextLayer interface {
	Read(ctx context.Context, path string) (TextLayerResult, error)
}

// NewTextLayer picks the reader named by cfg.TextLayer.
func NewTextLayer(cfg Config, runner Runner, logger *slog.Logger) (TextLayer, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.TextLayer {
	case "native":
		return &nativeTextLayer{logger: logger}, nil
	case "pdftotext":
		return &popplerTextLayer{bin: cfg.Pdftotext, runner: runner, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown text layer %q", cfg.TextLayer)
	}
}

// nativeTextLayer uses the pure-Go ledongthuc/pdf reader.
type nativeTextLayer struct {
	logger *slog.Logger
}

func (t *nativeTextLayer) Read(ctx context.Context, path string) (res TextLayerResult, err error) {
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", common.ErrParse, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return TextLayerResult{}, fmt.Errorf("%w: open pdf: %v", common.ErrParse, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			t.logger.Warn("failed to close pdf", "path", path, "error", cerr)
		}
	}()

	n := r.NumPage()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return TextLayerResult{}, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, perr := page.GetPlainText(nil)
		if perr != nil {
			t.logger.Debug("skipping unreadable page text", "path", path, "page", i, "error", perr)
			continue
		}
		if strings.TrimSpace(txt) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	if n < 1 {
		n = 1
	}
	return TextLayerResult{Text: Normalize(b.String()), Pages: n}, nil
}

// popplerTextLayer shells out to pdftotext.
type popplerTextLayer struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func (t *popplerTextLayer) Read(ctx context.Context, path string) (TextLayerResult, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := t.runner.Run(ctx, t.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return TextLayerResult{}, fmt.Errorf("%w: pdftotext: %v: %s", common.ErrParse, err, tail(strings.TrimSpace(string(errb)), 512))
	}
	// pdftotext ends every page with a form feed, even pages with no text
	pages := max(1, strings.Count(string(out), "\f"))
	text := strings.ReplaceAll(strings.TrimRight(string(out), "\f"), "\f", "\n")
	return TextLayerResult{Text: Normalize(text), Pages: pages}, nil
}
