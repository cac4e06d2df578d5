package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Recognition is the outcome of one OCR pass over one bitmap.
type Recognition struct {
	Text       string
	Confidence float64 // 0..100
	Words      int
	Lines      int
}

// Engine runs a single-language OCR pass over one image file.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (Recognition, error)
}

// EngineFactory builds an Engine from config.
type EngineFactory func(cfg Config, runner Runner, logger *slog.Logger) (Engine, error)

var (
	enginesMu sync.RWMutex
	engines   = map[string]EngineFactory{}
)

// RegisterEngine makes an engine selectable by name. Later registrations replace earlier ones.
func RegisterEngine(name string, f EngineFactory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = f
}

// EngineNames lists registered engines, sorted.
func EngineNames() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for n := range engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg Config, runner Runner, logger *slog.Logger) (Engine, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	enginesMu.RLock()
	f, ok := engines[cfg.Engine]
	enginesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ocr engine %q not registered (available: %v)", cfg.Engine, EngineNames())
	}
	return f(cfg, runner, logger)
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
