package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tathagata1/Pipegent/tool"
)

const systemPromptTemplate = `
You are a strict tool-using AI agent.

RULES:
1. Always respond ONLY with valid JSON that selects a tool:
   {"tool": "<tool_name>", "args": {...}}
   - Never output plain text outside the JSON.
   - Never explain your reasoning.

2. Available tools and required args:
%s

3. A tool call is mandatory for every response. If nothing else fits, call %s with the words you want to say.
`

var fallbackSpeechSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"comment": map[string]any{"type": "string"}},
	"required":   []string{"comment"},
}

// BuildSystemPrompt renders the executor system prompt for specs. With no
// specs, a fallback speech tool is advertised.
func BuildSystemPrompt(specs []tool.Spec, speechTool string) string {
	lines := make([]string, 0, len(specs))
	for _, s := range specs {
		lines = append(lines, fmt.Sprintf("   - %s: %s\n     input_schema: %s", s.Name, s.Description, schemaJSON(s.InputSchema)))
	}

	if len(lines) == 0 {
		lines = append(lines, fmt.Sprintf("   - %s(comment: str): Default speech output\n     input_schema: %s", speechTool, schemaJSON(fallbackSpeechSchema)))
	}

	return fmt.Sprintf(systemPromptTemplate, strings.Join(lines, "\n"), speechTool)
}

func schemaJSON(schema map[string]any) string {
	if schema == nil {
		schema = map[string]any{}
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(b)
}
