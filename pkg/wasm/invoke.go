package wasm

import (
	"context"

	"github.com/bytecodealliance/wasmtime-go/v25"
)

// Exec compiles (or reuses) the guest module, instantiates it against an
// empty import set, and calls the named export with the given arguments.
// The single result is coerced to a 64-bit signed integer.
func (e *Executor) Exec(ctx context.Context, wasmBytes []byte, funcName string, args []int64) (int64, error) {
	return e.exec(ctx, wasmBytes, funcName, args, false)
}

// ExecWithChannels is Exec with the channel host imports linked, so the
// guest may call tova.chan_send and tova.chan_receive.
func (e *Executor) ExecWithChannels(ctx context.Context, wasmBytes []byte, funcName string, args []int64) (int64, error) {
	return e.exec(ctx, wasmBytes, funcName, args, true)
}

func (e *Executor) exec(ctx context.Context, wasmBytes []byte, funcName string, args []int64, withChannels bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	module, err := e.cache.GetOrCompile(wasmBytes)
	if err != nil {
		return 0, err
	}

	store, err := newStore()
	if err != nil {
		return 0, &ExecutionError{Func: funcName, Cause: err}
	}

	var instance *wasmtime.Instance
	if withChannels {
		linker := wasmtime.NewLinker(Engine())
		if err := e.defineChannelImports(linker, store); err != nil {
			return 0, &InstantiationError{Cause: err}
		}
		instance, err = linker.Instantiate(store, module)
	} else {
		instance, err = wasmtime.NewInstance(store, module, []wasmtime.AsExtern{})
	}
	if err != nil {
		return 0, &InstantiationError{Cause: err}
	}

	fn := instance.GetFunc(store, funcName)
	if fn == nil {
		return 0, &FunctionNotFoundError{Name: funcName}
	}

	ret, err := fn.Call(store, coerceArgs(args, fn.Type(store).Params())...)
	if err != nil {
		return 0, &ExecutionError{Func: funcName, Cause: err}
	}

	return coerceResult(ret)
}

// coerceArgs converts host arguments to the guest's declared parameter
// types, zipping over the shorter of the two lists: extra declared
// parameters are dropped, extra host arguments are ignored. Declared types
// other than i32 and i64 take the raw i64 bits unchanged.
func coerceArgs(args []int64, params []*wasmtime.ValType) []interface{} {
	n := len(args)
	if len(params) < n {
		n = len(params)
	}

	out := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		switch params[i].Kind() {
		case wasmtime.KindI32:
			out = append(out, int32(args[i]))
		case wasmtime.KindI64:
			out = append(out, args[i])
		default:
			out = append(out, args[i])
		}
	}
	return out
}

// coerceResult narrows a call result to int64: i64 passes through, i32 is
// sign-extended, anything else is rejected.
func coerceResult(ret interface{}) (int64, error) {
	switch v := ret.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	default:
		return 0, ErrUnexpectedReturnType
	}
}
