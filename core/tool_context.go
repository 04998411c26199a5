package core

import (
	"context"

	"github.com/tathagata1/Pipegent/logging"
)

// ToolContext provides a constrained surface for plugin functions invoked by
// the step executor: the caller's context for cancellation, correlation
// identifiers and a logger.
type ToolContext struct {
	ctx    context.Context
	runID  string
	callID string

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to ctx. runID correlates all
// tool calls made while handling one request; callID identifies this call.
func NewToolContext(ctx context.Context, runID, callID string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ToolContext{
		ctx:           ctx,
		runID:         runID,
		callID:        callID,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runID }

// FunctionCallID returns the identifier of this tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.callID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

type runIDKey struct{}

// WithRunID returns a context carrying the run identifier of the current request.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom extracts the run identifier stored by WithRunID, or "".
func RunIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
