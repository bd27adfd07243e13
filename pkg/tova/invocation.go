package tova

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvocationStatus classifies how an invocation ended.
type InvocationStatus string

const (
	InvocationStatusSuccess InvocationStatus = "success"
	InvocationStatusError   InvocationStatus = "error"
)

// InvocationRecord is one logged guest invocation.
type InvocationRecord struct {
	ID           string           `json:"id"`
	RequestID    string           `json:"request_id"`
	Func         string           `json:"func"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  time.Time        `json:"completed_at"`
	DurationMS   int64            `json:"duration_ms"`
	Status       InvocationStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// InvocationLogger logs invocations (optional).
type InvocationLogger interface {
	Log(ctx context.Context, rec *InvocationRecord) error
}

// logInvocation emits an invocation record when a sink is configured and
// invocation logging is enabled.
func (r *Runtime) logInvocation(ctx context.Context, funcName string, startedAt time.Time, execErr error) {
	if r.invocationLogger == nil || !r.cfg.LogInvocations {
		return
	}

	completedAt := time.Now()
	rec := &InvocationRecord{
		ID:          uuid.New().String(),
		RequestID:   uuid.New().String(),
		Func:        funcName,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMS:  completedAt.Sub(startedAt).Milliseconds(),
		Status:      InvocationStatusSuccess,
	}
	if execErr != nil {
		rec.Status = InvocationStatusError
		rec.ErrorMessage = execErr.Error()
	}

	if err := r.invocationLogger.Log(ctx, rec); err != nil {
		r.logger.Warn("Failed to log invocation", zap.Error(err))
	}
}
