package executor

import (
	"encoding/json"

	"github.com/tathagata1/Pipegent/internal/util"
)

// Envelope is a tool call parsed from model output:
//
//	{"tool": "<name>", "args": {...}}
//
// When "args" is missing or not an object, every top-level key other than
// "tool" becomes an argument.
type Envelope struct {
	Tool string
	Args map[string]any
}

// ParseEnvelope extracts an Envelope from content. It reports false when the
// content (after trimming whitespace and one surrounding code fence) is not a
// JSON object or has no "tool" key.
func ParseEnvelope(content string) (Envelope, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(util.StripCodeFence(content)), &obj); err != nil {
		return Envelope{}, false
	}

	rawTool, ok := obj["tool"]
	if !ok {
		return Envelope{}, false
	}

	env := Envelope{Tool: util.FormatValue(rawTool)}

	if args, ok := obj["args"].(map[string]any); ok {
		env.Args = args
		return env, true
	}

	env.Args = make(map[string]any, len(obj)-1)
	for k, v := range obj {
		if k != "tool" {
			env.Args[k] = v
		}
	}
	return env, true
}
