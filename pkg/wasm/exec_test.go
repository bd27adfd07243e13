package wasm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tova-lang/tova-runtime/pkg/channels"
)

// (module
//   (func (export "answer") (result i64) (i64.const 42)))
var answerModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7e,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x0a, 0x01, 0x06, 0x61, 0x6e, 0x73, 0x77, 0x65, 0x72, 0x00, 0x00,
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x42, 0x2a, 0x0b,
}

// (module
//   (func (export "add") (param i32 i32) (result i32)
//     (i32.add (local.get 0) (local.get 1))))
var addModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

// (module
//   (func (export "dbl") (param i64) (result i64)
//     (i64.add (local.get 0) (local.get 0))))
var dblModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7e, 0x01, 0x7e,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 0x64, 0x62, 0x6c, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x00, 0x7c, 0x0b,
}

// (module
//   (func (export "spin") (result i64)
//     (loop (br 0)) (i64.const 0)))
var spinModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7e,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x08, 0x01, 0x04, 0x73, 0x70, 0x69, 0x6e, 0x00, 0x00,
	0x0a, 0x0b, 0x01, 0x09, 0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x42, 0x00, 0x0b,
}

func newTestExecutor() *Executor {
	return NewExecutor(channels.NewRegistry(zap.NewNop()), zap.NewNop())
}

func TestExec_ConstantResult(t *testing.T) {
	e := newTestExecutor()

	v, err := e.Exec(context.Background(), answerModule, "answer", nil)
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestExec_I32Args(t *testing.T) {
	e := newTestExecutor()

	v, err := e.Exec(context.Background(), addModule, "add", []int64{2, 3})
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if v != 5 {
		t.Errorf("expected 5, got %d", v)
	}
}

func TestExec_ExtraArgsIgnored(t *testing.T) {
	e := newTestExecutor()

	// Arguments beyond the declared parameter count are dropped.
	v, err := e.Exec(context.Background(), addModule, "add", []int64{2, 3, 99, 100})
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if v != 5 {
		t.Errorf("expected 5, got %d", v)
	}
}

func TestExec_FunctionNotFound(t *testing.T) {
	e := newTestExecutor()

	_, err := e.Exec(context.Background(), addModule, "missing", nil)
	if err == nil {
		t.Fatal("expected error for missing export")
	}
	if !IsNotFound(err) {
		t.Errorf("expected FunctionNotFoundError, got %v", err)
	}
}

func TestExec_CompileError(t *testing.T) {
	e := newTestExecutor()

	_, err := e.Exec(context.Background(), []byte{0xde, 0xad, 0xbe, 0xef}, "f", nil)
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if e.Cache().Size() != 0 {
		t.Errorf("compile errors must not be cached, cache size %d", e.Cache().Size())
	}
}

func TestExec_FuelExhaustion(t *testing.T) {
	if testing.Short() {
		t.Skip("burns the full fuel budget")
	}
	e := newTestExecutor()

	_, err := e.Exec(context.Background(), spinModule, "spin", nil)
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecutionError from fuel exhaustion, got %v", err)
	}
}

func TestModuleCache_Idempotent(t *testing.T) {
	e := newTestExecutor()

	for i := 0; i < 10; i++ {
		if _, err := e.Exec(context.Background(), answerModule, "answer", nil); err != nil {
			t.Fatalf("exec %d failed: %v", i, err)
		}
	}
	if size := e.Cache().Size(); size != 1 {
		t.Errorf("expected a single cached module, got %d", size)
	}
}

func TestExecManyReuse_TypedPath(t *testing.T) {
	e := newTestExecutor()

	calls := make([]Call, 16)
	for i := range calls {
		calls[i] = Call{Func: "add", Args: []int64{int64(i), 10}}
	}

	results := e.ExecManyReuse(context.Background(), addModule, calls)
	if len(results) != len(calls) {
		t.Fatalf("expected %d results, got %d", len(calls), len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("call %d failed: %v", i, r.Err)
		}
		if r.Value != int64(i)+10 {
			t.Errorf("call %d: expected %d, got %d", i, i+10, r.Value)
		}
	}
}

func TestExecManyReuse_TypedI64Path(t *testing.T) {
	e := newTestExecutor()

	results := e.ExecManyReuse(context.Background(), dblModule, []Call{
		{Func: "dbl", Args: []int64{21}},
		{Func: "dbl", Args: []int64{-4}},
	})
	if results[0].Err != nil || results[0].Value != 42 {
		t.Errorf("expected 42, got %+v", results[0])
	}
	if results[1].Err != nil || results[1].Value != -8 {
		t.Errorf("expected -8, got %+v", results[1])
	}
}

func TestExecManyReuse_MatchesSingleExec(t *testing.T) {
	e := newTestExecutor()

	calls := make([]Call, 8)
	want := make([]int64, 8)
	for i := range calls {
		calls[i] = Call{Func: "add", Args: []int64{int64(i), int64(i)}}
		v, err := e.Exec(context.Background(), addModule, "add", calls[i].Args)
		if err != nil {
			t.Fatalf("exec failed: %v", err)
		}
		want[i] = v
	}

	results := e.ExecManyReuse(context.Background(), addModule, calls)
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("call %d failed: %v", i, r.Err)
		}
		if r.Value != want[i] {
			t.Errorf("call %d: batch %d != single %d", i, r.Value, want[i])
		}
	}
}

func TestExecManyReuse_Empty(t *testing.T) {
	e := newTestExecutor()

	if results := e.ExecManyReuse(context.Background(), addModule, nil); results != nil {
		t.Errorf("expected nil results for empty batch, got %v", results)
	}
}

func TestExecManyReuse_UnknownFunction(t *testing.T) {
	e := newTestExecutor()

	results := e.ExecManyReuse(context.Background(), addModule, []Call{{Func: "missing"}})
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected per-call error, got %+v", results)
	}
	if !IsNotFound(results[0].Err) {
		t.Errorf("expected FunctionNotFoundError, got %v", results[0].Err)
	}
}
