package workspace

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestNew_PrivateDir(t *testing.T) {
	ws := newTestWorkspace(t)

	info, err := os.Stat(ws.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Dir()), "docverify-"))
}

func TestNewPagePath_Unique(t *testing.T) {
	ws := newTestWorkspace(t)

	var (
		mu   sync.Mutex
		seen = map[string]struct{}{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			p, err := ws.NewPagePath("run/1", page%3, "png")
			assert.NoError(t, err)
			mu.Lock()
			seen[p] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, seen, 50)

	p, err := ws.NewPagePath("run/1", 2, ".png")
	require.NoError(t, err)
	assert.Equal(t, ws.Dir(), filepath.Dir(p))
	assert.True(t, strings.HasPrefix(filepath.Base(p), "run_1_p2_"))
	assert.True(t, strings.HasSuffix(p, ".png"))
}

func TestRelease(t *testing.T) {
	ws := newTestWorkspace(t)
	p, err := ws.NewPagePath("r", 1, "png")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	ws.Release(p)
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	// second release and empty path are no-ops
	ws.Release(p)
	ws.Release("")
}

func TestRelease_RefusesOutsidePaths(t *testing.T) {
	ws := newTestWorkspace(t)
	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	ws.Release(outside)
	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestSweepAndClose(t *testing.T) {
	ws := newTestWorkspace(t)
	for i := 1; i <= 3; i++ {
		p, err := ws.NewPagePath("r", i, "png")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	assert.Equal(t, 3, ws.Sweep())
	assert.Equal(t, 0, ws.Sweep())

	dir := ws.Dir()
	require.NoError(t, ws.Close())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, ws.Close(), "close is idempotent")
	_, err = ws.NewPagePath("r", 1, "png")
	assert.ErrorIs(t, err, ErrClosed)
}
