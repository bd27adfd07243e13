// Package wasm compiles and executes guest WASM modules.
//
// A single wasmtime engine is shared process-wide: engine construction sets
// up the JIT pipeline, which is far too expensive to repeat per invocation.
// Each invocation gets its own store (fuel counter, memory, instance); a
// store is never shared across goroutines. The only relaxation is the batch
// path in ExecManyReuse, which confines one store to a single goroutine for
// the duration of a chunk.
package wasm

import (
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"go.uber.org/zap"

	"github.com/tova-lang/tova-runtime/pkg/channels"
)

// FuelBudget is the fuel assigned to every store at creation. A guest that
// exhausts it traps, which is the runtime's cooperative execution bound.
const FuelBudget uint64 = 1_000_000_000

var (
	engineOnce sync.Once
	engine     *wasmtime.Engine
)

// Engine returns the process-wide wasmtime engine, initializing it on first
// use. Fuel consumption and multi-value returns are enabled once here; the
// engine is immutable afterwards and lives until process exit.
func Engine() *wasmtime.Engine {
	engineOnce.Do(func() {
		cfg := wasmtime.NewConfig()
		cfg.SetConsumeFuel(true)
		cfg.SetWasmMultiValue(true)
		engine = wasmtime.NewEngineWithConfig(cfg)
	})
	return engine
}

// Executor runs guest functions against the shared engine. It owns the
// compiled-module cache and bridges guest channel imports into the registry.
type Executor struct {
	cache    *ModuleCache
	registry *channels.Registry
	logger   *zap.Logger
}

// NewExecutor creates an Executor. The registry may be nil if no guest will
// ever link the channel imports.
func NewExecutor(registry *channels.Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		cache:    NewModuleCache(logger),
		registry: registry,
		logger:   logger,
	}
}

// Cache exposes the executor's module cache.
func (e *Executor) Cache() *ModuleCache {
	return e.cache
}

// newStore creates a fresh fueled store against the shared engine.
func newStore() (*wasmtime.Store, error) {
	store := wasmtime.NewStore(Engine())
	if err := store.SetFuel(FuelBudget); err != nil {
		return nil, err
	}
	return store, nil
}
