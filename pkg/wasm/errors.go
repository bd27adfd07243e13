package wasm

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrUnexpectedReturnType is returned when a guest function produces a
	// value the runtime cannot represent as a 64-bit signed integer.
	ErrUnexpectedReturnType = errors.New("unexpected return type")
)

// CompileError wraps a compilation diagnostic from the engine. The
// diagnostic is surfaced unchanged and never cached.
type CompileError struct {
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile: %v", e.Cause)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// InstantiationError represents a failure to instantiate a compiled module,
// including unsatisfied imports and start-function traps.
type InstantiationError struct {
	Cause error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiate: %v", e.Cause)
}

func (e *InstantiationError) Unwrap() error {
	return e.Cause
}

// FunctionNotFoundError is returned when the named export is absent.
type FunctionNotFoundError struct {
	Name string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found", e.Name)
}

// ExecutionError represents a trap during a guest call, including fuel
// exhaustion and failures propagated out of host imports.
type ExecutionError struct {
	Func  string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error in '%s': %v", e.Func, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err indicates a missing export.
func IsNotFound(err error) bool {
	var nf *FunctionNotFoundError
	return errors.As(err, &nf)
}
