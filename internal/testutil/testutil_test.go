package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestBuilder(t *testing.T) {
	data := NewManifest("calculator").
		Description("Adds.").
		Function("calc").
		Property("a", "number").
		Required("a").
		JSON()

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "calculator", m["name"])
	assert.Equal(t, "calc", m["execution_function"])
	schema := m["input_schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"a"}, schema["required"])
}

func TestPluginTree(t *testing.T) {
	fsys := NewPluginTree().
		Add("core", "speech", NewManifest("speech").Property("comment", "string")).
		File("core/broken/manifest.json", []byte("{")).
		FS()

	assert.Contains(t, fsys, "core/speech/manifest.json")
	assert.Contains(t, fsys, "core/broken/manifest.json")
}

func TestToolCallAndSteps(t *testing.T) {
	assert.JSONEq(t, `{"tool":"speech","args":{"comment":"hi"}}`, ToolCall("speech", map[string]any{"comment": "hi"}))
	assert.JSONEq(t, `{"tool":"coin_flip","args":{}}`, ToolCall("coin_flip", nil))
	assert.JSONEq(t, `{"steps":["a","b"]}`, Steps("a", "b"))
	assert.JSONEq(t, `{"steps":[]}`, Steps())
}
