// Package workspace owns the scratch directory that holds rasterized page
// bitmaps while they wait for OCR.
//
// A Workspace is an explicit value: the process constructs one, hands it to the
// pipeline and calls Close on shutdown. Files are named per run and page with a
// timestamp and random suffix, so concurrent runs can share one Workspace.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned for operations on a closed Workspace.
var ErrClosed = errors.New("workspace closed")

type Workspace struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a private docverify-* directory under root (os.TempDir() if empty).
func New(root string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	dir, err := os.MkdirTemp(root, "docverify-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("chmod workspace: %w", err)
	}
	logger.Debug("workspace created", "dir", dir)
	return &Workspace{dir: dir, logger: logger}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// NewPagePath returns a unique, not yet existing path for a page bitmap.
func (w *Workspace) NewPagePath(runID string, page int, ext string) (string, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return "", ErrClosed
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "png"
	}
	if runID == "" {
		runID = "run"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%s_p%d_%d_%s.%s", sanitize(runID), page, time.Now().UnixNano(), suffix, ext)
	return filepath.Join(w.dir, name), nil
}

// Release deletes one entry. Failures are logged, never returned.
func (w *Workspace) Release(path string) {
	if path == "" {
		return
	}
	if !w.owns(path) {
		w.logger.Warn("refusing to release path outside workspace", "path", path, "dir", w.dir)
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("could not delete temp file", "path", path, "error", err)
	}
}

// Sweep removes every entry left in the workspace and returns how many were removed.
func (w *Workspace) Sweep() int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("could not list workspace", "dir", w.dir, "error", err)
		}
		return 0
	}
	removed := 0
	for _, e := range entries {
		p := filepath.Join(w.dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			w.logger.Warn("could not delete temp file", "path", p, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		w.logger.Info("workspace swept", "dir", w.dir, "removed", removed)
	}
	return removed
}

// Close sweeps and removes the directory. Safe to call more than once.
func (w *Workspace) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.Sweep()
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warn("could not remove workspace", "dir", w.dir, "error", err)
		return nil
	}
	w.logger.Debug("workspace removed", "dir", w.dir)
	return nil
}

func (w *Workspace) owns(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
