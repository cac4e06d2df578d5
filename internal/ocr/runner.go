package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/internal/common"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// stderrTail bounds how much tool stderr ends up in a log line.
const stderrTail = 8 << 10

type execRunner struct {
	logger    *slog.Logger
	waitDelay time.Duration
}

// NewExecRunner returns a Runner backed by os/exec. A binary missing from
// PATH is reported as common.ErrMissingDependency.
func NewExecRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return execRunner{logger: logger, waitDelay: 2 * time.Second}
}

func (r execRunner) Run(ctx context.Context, tool string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, tool, args...)
	// children that keep the pipes open must not outlive the run budget
	cmd.WaitDelay = r.waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(err, exec.ErrNotFound) {
		err = fmt.Errorf("%w: %s: %w", common.ErrMissingDependency, tool, err)
	}

	if err != nil {
		attrs := []any{
			"tool", tool,
			"args", strings.Join(args, " "),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
			"stderr", tail(stderr.String(), stderrTail),
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			attrs = append(attrs, "exit_code", exitErr.ExitCode())
		}
		if ctx.Err() != nil {
			attrs = append(attrs, "ctx_error", ctx.Err())
		}
		r.logger.Error("exec failed", attrs...)
	} else {
		r.logger.Debug("exec ok",
			"tool", tool,
			"args", strings.Join(args, " "),
			"duration_ms", elapsed.Milliseconds(),
			"stdout_bytes", stdout.Len(),
			"stderr_bytes", stderr.Len(),
		)
	}

	return stdout.Bytes(), stderr.Bytes(), err
}

// tail keeps the last max bytes of s, where tools print the actual failure.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := len(s) - max
	for cut < len(s) && !utf8RuneStart(s[cut]) {
		cut++
	}
	return "(truncated)..." + s[cut:]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
