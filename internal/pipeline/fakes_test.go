package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/ocr"
	"github.com/joseph-ayodele/docverify/internal/workspace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTextLayer struct {
	res ocr.TextLayerResult
	err error
}

func (f *fakeTextLayer) Read(context.Context, string) (ocr.TextLayerResult, error) {
	return f.res, f.err
}

// fakeRasterizer writes "page-N" into the output file so the engine can tell
// pages apart.
type fakeRasterizer struct {
	mu         sync.Mutex
	available  bool
	failPages  map[int]error
	detections int
	calls      []int
}

func (f *fakeRasterizer) Name() string { return "fake" }

func (f *fakeRasterizer) Detect(context.Context) extract.Capability {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detections++
	if !f.available {
		return extract.Unavailable("fake", "fake rasterizer not installed")
	}
	return extract.Available("fake")
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string, page int, outPath string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	err := f.failPages[page]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if werr := os.WriteFile(outPath, []byte("page-"+strconv.Itoa(page)), 0o600); werr != nil {
		return "", werr
	}
	return outPath, nil
}

func (f *fakeRasterizer) rasterized() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

// fakeEngine answers per page (read from the bitmap written by fakeRasterizer)
// or with a fixed recognition for other inputs.
type fakeEngine struct {
	mu         sync.Mutex
	calls     int
	pages     map[int]ocr.Recognition
	failPages  map[int]error
	fixed     *ocr.Recognition
	err       error
	panicMsg  string
	block     bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, imagePath string) (ocr.Recognition, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return ocr.Recognition{}, ctx.Err()
	}
	if f.err != nil {
		return ocr.Recognition{}, f.err
	}
	if f.fixed != nil {
		return *f.fixed, nil
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return ocr.Recognition{}, err
	}
	page, err := strconv.Atoi(strings.TrimPrefix(string(data), "page-"))
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("unexpected bitmap %q", data)
	}
	if err := f.failPages[page]; err != nil {
		return ocr.Recognition{}, err
	}
	if rec, ok := f.pages[page]; ok {
		return rec, nil
	}
	return ocr.Recognition{Text: fmt.Sprintf("text of page %d", page), Confidence: 80, Words: 4, Lines: 1}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	pipeline   *Pipeline
	textLayer  *fakeTextLayer
	rasterizer *fakeRasterizer
	engine     *fakeEngine
	workspace  *workspace.Workspace
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	ws, err := workspace.New(t.TempDir(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	h := &harness{
		textLayer:  &fakeTextLayer{},
		rasterizer: &fakeRasterizer{available: true, failPages: map[int]error{}},
		engine:     &fakeEngine{pages: map[int]ocr.Recognition{}, failPages: map[int]error{}},
		workspace:  ws,
	}
	h.pipeline = NewPipeline(cfg, h.textLayer, h.rasterizer, h.engine, ws, discardLogger())
	return h
}

// leftovers lists files still present in the workspace.
func (h *harness) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.workspace.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func writeDoc(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 test"), 0o600))
	return p
}

var errBoom = errors.New("boom")

const shortTimeout = 50 * time.Millisecond
