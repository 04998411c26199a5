// Package agent contains the request orchestrator and the response
// synthesizer.
//
// A Planner handles one user request at a time:
//
//  1. refresh the conversation history if its durable copy changed
//  2. ask the plan generator for an ordered list of steps
//  3. run every step through the step executor, persisting each result as
//     an artifact so later steps can read previews of it
//  4. ask the Synthesizer for the final answer
//  5. delete the run's artifacts and append one user/assistant pair to the
//     history
//
// Handle never returns an error; failures surface as "Planner error: ..."
// text so the read loop can keep going.
package agent
