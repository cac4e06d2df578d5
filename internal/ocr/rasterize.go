package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docverify/internal/extract"
)

// Rasterizer renders single PDF pages to PNG bitmaps through an optional
// external tool. Detect must be called before Rasterize; an unavailable tool is
// reported as a Capability, never as an error.
type Rasterizer interface {
	Name() string
	Detect(ctx context.Context) extract.Capability
	// Rasterize renders 1-based page of pdfPath into outPath (a .png path) and
	// returns the path of the bitmap it produced.
	Rasterize(ctx context.Context, pdfPath string, page int, outPath string) (string, error)
}

// errNoImage mirrors the failure of a converter that exits cleanly without output.
var errNoImage = errors.New("no image generated")

// NewRasterizer picks the tool named by cfg.Rasterizer.
func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) (Rasterizer, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Rasterizer {
	case "gm":
		return &gmRasterizer{cfg: cfg, runner: runner, logger: logger}, nil
	case "pdftoppm":
		return &popplerRasterizer{cfg: cfg, runner: runner, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", cfg.Rasterizer)
	}
}

// gmRasterizer uses GraphicsMagick (which delegates PDF decoding to Ghostscript).
type gmRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func (g *gmRasterizer) Name() string { return "graphicsmagick" }

func (g *gmRasterizer) Detect(ctx context.Context) extract.Capability {
	if _, _, err := g.runner.Run(ctx, g.cfg.GM, "version"); err != nil {
		g.logger.Warn("graphicsmagick not found; scanned PDFs cannot be rasterized", "bin", g.cfg.GM, "error", err)
		return extract.Unavailable(g.Name(),
			"GraphicsMagick not installed. Install with: choco install graphicsmagick (Windows), brew install graphicsmagick (Mac) or apt install graphicsmagick (Linux)")
	}
	return extract.Available(g.Name())
}

func (g *gmRasterizer) Rasterize(ctx context.Context, pdfPath string, page int, outPath string) (string, error) {
	// gm convert -density 300 in.pdf[N-1] -resize 2000x2000> out.png
	src := fmt.Sprintf("%s[%d]", pdfPath, page-1)
	geometry := fmt.Sprintf("%dx%d>", g.cfg.MaxWidth, g.cfg.MaxHeight)
	_, errb, err := g.runner.Run(ctx, g.cfg.GM, "convert",
		"-density", strconv.Itoa(g.cfg.DPI),
		src,
		"-resize", geometry,
		outPath,
	)
	if err != nil {
		return "", fmt.Errorf("gm convert: %w: %s", err, tail(strings.TrimSpace(string(errb)), 512))
	}
	return finishBitmap(outPath, g.cfg, g.logger)
}

// popplerRasterizer uses pdftoppm.
type popplerRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func (p *popplerRasterizer) Name() string { return "pdftoppm" }

func (p *popplerRasterizer) Detect(ctx context.Context) extract.Capability {
	if _, _, err := p.runner.Run(ctx, p.cfg.Pdftoppm, "-v"); err != nil {
		p.logger.Warn("pdftoppm not found; scanned PDFs cannot be rasterized", "bin", p.cfg.Pdftoppm, "error", err)
		return extract.Unavailable(p.Name(),
			"pdftoppm not installed. Install poppler with: brew install poppler (Mac) or apt install poppler-utils (Linux)")
	}
	return extract.Available(p.Name())
}

func (p *popplerRasterizer) Rasterize(ctx context.Context, pdfPath string, page int, outPath string) (string, error) {
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <prefix>  => <prefix>.png
	prefix := strings.TrimSuffix(outPath, ".png")
	n := strconv.Itoa(page)
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm,
		"-r", strconv.Itoa(p.cfg.DPI),
		"-png", "-f", n, "-l", n, "-singlefile",
		pdfPath, prefix,
	)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, tail(strings.TrimSpace(string(errb)), 512))
	}
	return finishBitmap(prefix+".png", p.cfg, p.logger)
}

// finishBitmap checks the converter produced a file and enforces the size cap.
func finishBitmap(path string, cfg Config, logger *slog.Logger) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", errNoImage
	}
	resized, err := CapBitmap(path, cfg.MaxWidth, cfg.MaxHeight)
	if err != nil {
		return path, fmt.Errorf("cap bitmap: %w", err)
	}
	if resized {
		logger.Debug("bitmap downscaled to cap", "path", path, "max_w", cfg.MaxWidth, "max_h", cfg.MaxHeight)
	}
	return path, nil
}
