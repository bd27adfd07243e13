package wasm

import (
	"fmt"
	"math"

	"github.com/bytecodealliance/wasmtime-go/v25"
)

// HostModuleName is the import namespace guest modules use for the channel
// host functions.
const HostModuleName = "tova"

// DrainedSentinel is returned by chan_receive when the channel is closed
// and drained. i64 min cannot collide with any plausible user value,
// including -1.
const DrainedSentinel int64 = math.MinInt64

// defineChannelImports registers the channel host functions on the linker:
//
//	tova.chan_send    : (i32, i64) -> i32   0 on success, -1 on failure
//	tova.chan_receive : (i32) -> i64        blocking; DrainedSentinel on drained-close
//
// Channel ids are i32 at the WASM ABI and are widened through u32 into the
// registry's u64 id space.
func (e *Executor) defineChannelImports(linker *wasmtime.Linker, store *wasmtime.Store) error {
	if e.registry == nil {
		return fmt.Errorf("no channel registry configured")
	}

	err := linker.DefineFunc(store, HostModuleName, "chan_send", func(id int32, value int64) int32 {
		if e.registry.Send(uint64(uint32(id)), value) {
			return 0
		}
		return -1
	})
	if err != nil {
		return fmt.Errorf("failed to define chan_send: %w", err)
	}

	err = linker.DefineFunc(store, HostModuleName, "chan_receive", func(id int32) int64 {
		v, ok := e.registry.ReceiveBlocking(uint64(uint32(id)))
		if !ok {
			return DrainedSentinel
		}
		return v
	})
	if err != nil {
		return fmt.Errorf("failed to define chan_receive: %w", err)
	}

	return nil
}
