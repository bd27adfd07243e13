package wasm

import (
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// ModuleCache caches compiled modules keyed by a 64-bit content hash of the
// guest bytes, so repeated invocations of identical guest code skip
// recompilation. Entries are immutable and live for the process lifetime;
// there is no eviction.
type ModuleCache struct {
	modules map[uint64]*wasmtime.Module
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewModuleCache creates an empty ModuleCache.
func NewModuleCache(logger *zap.Logger) *ModuleCache {
	return &ModuleCache{
		modules: make(map[uint64]*wasmtime.Module),
		logger:  logger,
	}
}

// GetOrCompile returns the compiled module for the given guest bytes,
// compiling and caching it on a miss. Compilation runs with the lock
// released, so two goroutines racing on the same bytes may both compile;
// the loser discards its copy. Compile errors are surfaced verbatim and
// never cached.
func (c *ModuleCache) GetOrCompile(wasmBytes []byte) (*wasmtime.Module, error) {
	key := xxhash.Sum64(wasmBytes)

	c.mu.RLock()
	if module, exists := c.modules[key]; exists {
		c.mu.RUnlock()
		return module, nil
	}
	c.mu.RUnlock()

	compiled, err := wasmtime.NewModule(Engine(), wasmBytes)
	if err != nil {
		return nil, &CompileError{Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check (another goroutine might have added it)
	if existing, exists := c.modules[key]; exists {
		return existing, nil
	}

	c.modules[key] = compiled

	c.logger.Debug("Module compiled and cached",
		zap.Uint64("module_hash", key),
		zap.Int("cache_size", len(c.modules)),
	)

	return compiled, nil
}

// Size returns the current number of cached modules.
func (c *ModuleCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.modules)
}
