// Package executor runs one plan step by forcing the executor model to answer
// with a JSON tool call, dispatching it, and allowing at most one follow-up
// round.
//
// The protocol is an explicit state machine:
//
//	AwaitResponse1 -> ParseEnvelope1 -> Terminal | Dispatch1
//	Dispatch1      -> Terminal | AwaitResponse2
//	AwaitResponse2 -> ParseEnvelope2 -> Terminal | Dispatch2
//	Dispatch2      -> Terminal
//
// so a step costs at most two model calls and two tool executions.
package executor
