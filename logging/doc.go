// Package logging provides a minimal logging interface and adapters for Pipegent.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the planner, executor and plugin registry use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - PipegentLogger with contextual cloning and domain helpers (tool calls,
//     model calls, plan execution)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	planner := agent.NewPlanner(generator, executor, synthesizer, artifacts, func(o *agent.PlannerOptions) {
//		o.Logger = logger
//	})
//
// Arguments after the message are slog style key/value pairs.
package logging
