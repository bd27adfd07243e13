package wasm

import (
	"context"

	"github.com/bytecodealliance/wasmtime-go/v25"
)

// Call names one guest invocation inside a batch.
type Call struct {
	Func string
	Args []int64
}

// Result is the per-call outcome of a batch.
type Result struct {
	Value int64
	Err   error
}

// ExecManyReuse runs a chunk of calls against the same module through one
// shared store and instance.
//
// Reuse is sound only for pure guest functions: nothing may depend on
// linear memory or mutable globals surviving between calls. The channel
// host imports are never linked on this path.
//
// For common signatures the function resolved from the first call drives
// the entire chunk, skipping per-call type inspection; chunks are expected
// to be homogeneous in signature.
func (e *Executor) ExecManyReuse(ctx context.Context, wasmBytes []byte, calls []Call) []Result {
	if len(calls) == 0 {
		return nil
	}

	fail := func(err error) []Result {
		results := make([]Result, len(calls))
		for i := range results {
			results[i] = Result{Err: err}
		}
		return results
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	module, err := e.cache.GetOrCompile(wasmBytes)
	if err != nil {
		return fail(err)
	}

	store, err := newStore()
	if err != nil {
		return fail(&ExecutionError{Func: calls[0].Func, Cause: err})
	}

	instance, err := wasmtime.NewInstance(store, module, []wasmtime.AsExtern{})
	if err != nil {
		return fail(&InstantiationError{Cause: err})
	}

	if results, ok := e.tryTypedBatch(store, instance, calls); ok {
		return results
	}

	return e.dynamicBatch(store, instance, calls)
}

// typed signatures handled by the fast path
var typedSignatures = []struct {
	params  []wasmtime.ValKind
	results []wasmtime.ValKind
}{
	{[]wasmtime.ValKind{wasmtime.KindI32, wasmtime.KindI32}, []wasmtime.ValKind{wasmtime.KindI32}},
	{[]wasmtime.ValKind{wasmtime.KindI64, wasmtime.KindI64}, []wasmtime.ValKind{wasmtime.KindI64}},
	{[]wasmtime.ValKind{wasmtime.KindI32}, []wasmtime.ValKind{wasmtime.KindI32}},
	{[]wasmtime.ValKind{wasmtime.KindI64}, []wasmtime.ValKind{wasmtime.KindI64}},
	{[]wasmtime.ValKind{}, []wasmtime.ValKind{wasmtime.KindI32}},
}

// tryTypedBatch drives the whole chunk through the function resolved from
// the first call if its signature matches a fast path. Returns false when
// the chunk must fall back to per-call resolution.
func (e *Executor) tryTypedBatch(store *wasmtime.Store, instance *wasmtime.Instance, calls []Call) ([]Result, bool) {
	fn := instance.GetFunc(store, calls[0].Func)
	if fn == nil {
		return nil, false
	}

	ty := fn.Type(store)
	params, rets := ty.Params(), ty.Results()
	if len(params) != len(calls[0].Args) {
		return nil, false
	}

	matched := false
	for _, sig := range typedSignatures {
		if kindsMatch(params, sig.params) && kindsMatch(rets, sig.results) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, false
	}

	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		ret, err := fn.Call(store, coerceArgs(call.Args, params)...)
		if err != nil {
			results = append(results, Result{Err: &ExecutionError{Func: calls[0].Func, Cause: err}})
			continue
		}
		v, err := coerceResult(ret)
		results = append(results, Result{Value: v, Err: err})
	}
	return results, true
}

// dynamicBatch resolves each call's function by name, caching the lookup
// per chunk, and goes through the generic coercion path.
func (e *Executor) dynamicBatch(store *wasmtime.Store, instance *wasmtime.Instance, calls []Call) []Result {
	type resolved struct {
		fn     *wasmtime.Func
		params []*wasmtime.ValType
	}
	funcCache := make(map[string]*resolved)

	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		r, ok := funcCache[call.Func]
		if !ok {
			fn := instance.GetFunc(store, call.Func)
			if fn == nil {
				results = append(results, Result{Err: &FunctionNotFoundError{Name: call.Func}})
				continue
			}
			r = &resolved{fn: fn, params: fn.Type(store).Params()}
			funcCache[call.Func] = r
		}

		ret, err := r.fn.Call(store, coerceArgs(call.Args, r.params)...)
		if err != nil {
			results = append(results, Result{Err: &ExecutionError{Func: call.Func, Cause: err}})
			continue
		}
		v, err := coerceResult(ret)
		results = append(results, Result{Value: v, Err: err})
	}
	return results
}

func kindsMatch(types []*wasmtime.ValType, kinds []wasmtime.ValKind) bool {
	if len(types) != len(kinds) {
		return false
	}
	for i, t := range types {
		if t.Kind() != kinds[i] {
			return false
		}
	}
	return true
}
