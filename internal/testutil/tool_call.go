package testutil

import "encoding/json"

// ToolCall renders the JSON envelope a model emits to call tool with args.
func ToolCall(tool string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(map[string]any{"tool": tool, "args": args})
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Steps renders a planner reply proposing steps.
func Steps(steps ...string) string {
	if steps == nil {
		steps = []string{}
	}
	data, err := json.Marshal(map[string]any{"steps": steps})
	if err != nil {
		panic(err)
	}
	return string(data)
}
