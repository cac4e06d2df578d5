package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docverify/internal/common"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	name string
	args []string
}

// scriptedRunner records invocations and answers from a callback.
type scriptedRunner struct {
	calls []call
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, call{name: name, args: args})
	if r.fn == nil {
		return nil, nil, nil
	}
	return r.fn(name, args)
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t90\tXYZ\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t90\t20\t80\tUniversity\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t60\t20\t70\tStudent\n" +
	"5\t1\t1\t1\t2\t2\t80\t40\t30\t20\t-1\t \n" +
	"5\t1\t2\t1\t1\t1\t10\t90\t60\t20\t60\tID\n"

func TestParseTSV(t *testing.T) {
	rec := ParseTSV(sampleTSV)

	assert.Equal(t, "XYZ University\nStudent\n\nID", rec.Text)
	assert.Equal(t, 4, rec.Words)
	assert.Equal(t, 3, rec.Lines)
	assert.InDelta(t, 75.0, rec.Confidence, 1e-9)
}

func TestParseTSV_Empty(t *testing.T) {
	rec := ParseTSV("level\tpage_num\n")
	assert.Equal(t, "", rec.Text)
	assert.Zero(t, rec.Confidence)
	assert.Zero(t, rec.Words)
}

func TestNormalize(t *testing.T) {
	in := "  line one\t\twith   gaps  \r\nline two\r\n\r\n\r\n\r\nline three  "
	assert.Equal(t, "line one with gaps\nline two\n\nline three", Normalize(in))

	// decomposed e + combining acute becomes a single code point
	assert.Equal(t, "caf\u00e9", Normalize("cafe\u0301"))
	assert.Equal(t, "", Normalize(""))
}

func TestTesseractCLI_Args(t *testing.T) {
	r := &scriptedRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return []byte(sampleTSV), nil, nil
	}}
	eng, err := NewEngine(Config{TesseractLang: "hin", PSM: 6, TessdataDir: "/td"}, r, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "tesseract", eng.Name())

	rec, err := eng.Recognize(context.Background(), "/tmp/p1.png")
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Words)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "tesseract", r.calls[0].name)
	assert.Equal(t, []string{"/tmp/p1.png", "stdout", "-l", "hin", "--psm", "6", "--tessdata-dir", "/td", "tsv"}, r.calls[0].args)
}

func TestTesseractCLI_Failure(t *testing.T) {
	r := &scriptedRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error opening data file"), errors.New("exit status 1")
	}}
	eng, err := NewEngine(Config{}, r, discardLogger())
	require.NoError(t, err)

	_, err = eng.Recognize(context.Background(), "/tmp/p1.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error opening data file")
}

func TestNewEngine_Unknown(t *testing.T) {
	_, err := NewEngine(Config{Engine: "nope"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
	assert.Contains(t, EngineNames(), "tesseract")
}

func TestGMRasterizer_Detect(t *testing.T) {
	r := &scriptedRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, nil, errors.New("executable file not found in $PATH")
	}}
	rz, err := NewRasterizer(Config{}, r, discardLogger())
	require.NoError(t, err)

	capability := rz.Detect(context.Background())
	assert.False(t, capability.Available)
	assert.Contains(t, capability.Reason, "GraphicsMagick not installed")
	assert.Equal(t, []string{"version"}, r.calls[0].args)

	r.fn = nil
	assert.True(t, rz.Detect(context.Background()).Available)
}

func TestGMRasterizer_Rasterize(t *testing.T) {
	out := filepath.Join(t.TempDir(), "p3.png")
	r := &scriptedRunner{fn: func(_ string, args []string) ([]byte, []byte, error) {
		writePNG(t, args[len(args)-1], 40, 20)
		return nil, nil, nil
	}}
	rz, err := NewRasterizer(Config{}, r, discardLogger())
	require.NoError(t, err)

	got, err := rz.Rasterize(context.Background(), "/docs/in.pdf", 3, out)
	require.NoError(t, err)
	assert.Equal(t, out, got)
	assert.Equal(t, "gm", r.calls[0].name)
	assert.Equal(t, []string{"convert", "-density", "300", "/docs/in.pdf[2]", "-resize", "2000x2000>", out}, r.calls[0].args)
}

func TestRasterizer_NoImageGenerated(t *testing.T) {
	out := filepath.Join(t.TempDir(), "p1.png")
	rz, err := NewRasterizer(Config{Rasterizer: "pdftoppm"}, &scriptedRunner{}, discardLogger())
	require.NoError(t, err)

	_, err = rz.Rasterize(context.Background(), "/docs/in.pdf", 1, out)
	require.ErrorIs(t, err, errNoImage)
}

func TestPopplerRasterizer_Args(t *testing.T) {
	out := filepath.Join(t.TempDir(), "p2.png")
	r := &scriptedRunner{fn: func(_ string, args []string) ([]byte, []byte, error) {
		writePNG(t, args[len(args)-1]+".png", 10, 10)
		return nil, nil, nil
	}}
	rz, err := NewRasterizer(Config{Rasterizer: "pdftoppm", DPI: 150}, r, discardLogger())
	require.NoError(t, err)

	got, err := rz.Rasterize(context.Background(), "/docs/in.pdf", 2, out)
	require.NoError(t, err)
	assert.Equal(t, out, got)
	assert.Equal(t, []string{"-r", "150", "-png", "-f", "2", "-l", "2", "-singlefile", "/docs/in.pdf", strings.TrimSuffix(out, ".png")}, r.calls[0].args)
}

func TestNewRasterizer_Unknown(t *testing.T) {
	_, err := NewRasterizer(Config{Rasterizer: "imagemagick"}, nil, nil)
	require.Error(t, err)
}

func TestPopplerTextLayer(t *testing.T) {
	r := &scriptedRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return []byte("Page one text\fPage two text\f"), nil, nil
	}}
	tl, err := NewTextLayer(Config{TextLayer: "pdftotext"}, r, discardLogger())
	require.NoError(t, err)

	res, err := tl.Read(context.Background(), "/docs/in.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Page one text\nPage two text", res.Text)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "/docs/in.pdf", "-"}, r.calls[0].args)
}

func TestPopplerTextLayer_ScannedPagesStillCounted(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		pages int
		text  string
	}{
		{"seven empty pages", "\f\f\f\f\f\f\f", 7, ""},
		{"text then empty page", "cover\f\f", 2, "cover"},
		{"no form feed", "single", 1, "single"},
		{"no output", "", 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &scriptedRunner{fn: func(string, []string) ([]byte, []byte, error) {
				return []byte(tt.out), nil, nil
			}}
			tl, err := NewTextLayer(Config{TextLayer: "pdftotext"}, r, discardLogger())
			require.NoError(t, err)

			res, err := tl.Read(context.Background(), "/docs/scan.pdf")
			require.NoError(t, err)
			assert.Equal(t, tt.pages, res.Pages)
			assert.Equal(t, tt.text, res.Text)
		})
	}
}

func TestPopplerTextLayer_ParseError(t *testing.T) {
	r := &scriptedRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}}
	tl, err := NewTextLayer(Config{TextLayer: "pdftotext"}, r, discardLogger())
	require.NoError(t, err)

	_, err = tl.Read(context.Background(), "/docs/in.pdf")
	require.ErrorIs(t, err, common.ErrParse)
}

func TestNativeTextLayer_NotAPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(p, []byte("this is not a pdf"), 0o600))

	tl, err := NewTextLayer(Config{}, nil, discardLogger())
	require.NoError(t, err)

	_, err = tl.Read(context.Background(), p)
	require.ErrorIs(t, err, common.ErrParse)
}

func TestCapBitmap(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.png")
	writePNG(t, p, 400, 100)

	resized, err := CapBitmap(p, 200, 200)
	require.NoError(t, err)
	assert.True(t, resized)

	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	again, err := CapBitmap(p, 200, 200)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(4000, 3000, 2000, 2000)
	assert.Equal(t, 2000, w)
	assert.Equal(t, 1500, h)

	w, h = fitWithin(1000, 5000, 2000, 2000)
	assert.Equal(t, 400, w)
	assert.Equal(t, 2000, h)

	w, h = fitWithin(100, 100, 2000, 2000)
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)
}

func TestConfigFrom_Defaults(t *testing.T) {
	cfg := ConfigFrom(common.OCRConfig{}).WithDefaults()
	assert.Equal(t, "tesseract", cfg.Engine)
	assert.Equal(t, "gm", cfg.Rasterizer)
	assert.Equal(t, "native", cfg.TextLayer)
	assert.Equal(t, 300, cfg.DPI)
	assert.Equal(t, 2000, cfg.MaxWidth)
	assert.Equal(t, 2000, cfg.MaxHeight)
	assert.Equal(t, "eng", cfg.TesseractLang)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner(discardLogger())
	_, _, err := r.Run(context.Background(), "docverify-no-such-tool-7f3a")
	require.ErrorIs(t, err, common.ErrMissingDependency)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 10))
	assert.Equal(t, "(truncated)...fatal", tail("noise noise fatal", 5))
	// never splits a multi-byte rune
	assert.Equal(t, "(truncated)...é", tail("aé", 2))
}
