package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Engine names accepted by NewEngine.
const (
	EngineAuto       = "auto"
	EngineTesseract  = "tesseract"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
)

// EngineConfig selects and configures an engine.
type EngineConfig struct {
	// Name is one of the Engine* constants. Empty means auto.
	Name string

	// Languages are Tesseract language codes (e.g. "eng", "deu").
	Languages []string

	// DocumentAI locates the processor for the documentai engine.
	DocumentAI DocumentAIConfig
}

// Factory builds an engine from configuration.
type Factory func(cfg EngineConfig) (Engine, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

func init() {
	Register(EngineVision, func(EngineConfig) (Engine, error) {
		return NewGoogleVisionEngine(), nil
	})
	Register(EngineDocumentAI, func(cfg EngineConfig) (Engine, error) {
		return NewDocumentAIEngine(cfg.DocumentAI)
	})
}

// Register makes an engine available to NewEngine. Engines that need cgo
// (tesseract) register themselves from their own package.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// Registered lists the engine names NewEngine can build.
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEngine creates the engine named by cfg. "auto" picks the local Tesseract
// engine when it is compiled in and fails with ErrDependency otherwise.
func NewEngine(cfg EngineConfig) (Engine, error) {
	const op = "NewEngine"

	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" || name == EngineAuto {
		name = EngineTesseract
	}

	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		if name == EngineTesseract {
			return nil, NewOCRError(op, ErrDependency, "tesseract support is not compiled in")
		}
		return nil, NewOCRError(op, ErrUnsupportedEngine, fmt.Sprintf("engine %q (available: %s)", cfg.Name, strings.Join(Registered(), ", ")))
	}

	engine, err := factory(cfg)
	if err != nil {
		return nil, wrapEngineError(op, name, err, "failed to create engine")
	}
	return engine, nil
}

type rateLimitedEngine struct {
	Engine
	limiter *rate.Limiter
}

// RateLimited paces session creation on engine through limiter. A nil limiter
// returns engine unchanged.
func RateLimited(engine Engine, limiter *rate.Limiter) Engine {
	if engine == nil || limiter == nil {
		return engine
	}
	return &rateLimitedEngine{Engine: engine, limiter: limiter}
}

func (r *rateLimitedEngine) NewSession(ctx context.Context) (Session, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Engine.NewSession(ctx)
}
