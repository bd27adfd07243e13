package scheduler

import (
	"errors"
	"fmt"
)

// Sentinel errors for policy outcomes.
var (
	// ErrTimeout is returned when a timeout policy's deadline elapses
	// before every task has completed.
	ErrTimeout = errors.New("concurrent timeout")

	// ErrNoTasks is returned by the race policy when no tasks were given.
	ErrNoTasks = errors.New("no tasks provided")
)

// JoinError indicates a worker terminated abnormally before producing a
// result.
type JoinError struct {
	Cause interface{}
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join: worker panic: %v", e.Cause)
}
