package testutil

import (
	"encoding/json"
	"path"
	"testing/fstest"
)

// ManifestBuilder helps construct plugin manifests with fluent chaining.
// Example:
//
//	data := NewManifest("calculator").Function("calculator").
//		Property("a", "number").Property("b", "number").Required("a", "b").JSON()
type ManifestBuilder struct {
	name        string
	description string
	function    string
	properties  map[string]any
	required    []string
}

// NewManifest creates a builder for a manifest named name. The execution
// function defaults to the same name.
func NewManifest(name string) *ManifestBuilder {
	return &ManifestBuilder{
		name:        name,
		description: "Test plugin " + name + ".",
		function:    name,
		properties:  map[string]any{},
		required:    []string{},
	}
}

// Description sets the manifest description (chainable).
func (b *ManifestBuilder) Description(d string) *ManifestBuilder {
	b.description = d
	return b
}

// Function sets the execution function name (chainable).
func (b *ManifestBuilder) Function(fn string) *ManifestBuilder {
	b.function = fn
	return b
}

// Property declares an input property of the given JSON type (chainable).
func (b *ManifestBuilder) Property(name, typ string) *ManifestBuilder {
	b.properties[name] = map[string]any{"type": typ}
	return b
}

// Required marks properties as required (chainable).
func (b *ManifestBuilder) Required(names ...string) *ManifestBuilder {
	b.required = append(b.required, names...)
	return b
}

// JSON renders the manifest.
func (b *ManifestBuilder) JSON() []byte {
	data, err := json.MarshalIndent(map[string]any{
		"name":               b.name,
		"description":        b.description,
		"execution_function": b.function,
		"input_schema": map[string]any{
			"type":       "object",
			"properties": b.properties,
			"required":   b.required,
		},
	}, "", "  ")
	if err != nil {
		panic(err)
	}
	return data
}

// PluginTree assembles an in-memory plugin directory tree.
type PluginTree struct {
	fs fstest.MapFS
}

// NewPluginTree returns an empty tree.
func NewPluginTree() *PluginTree {
	return &PluginTree{fs: fstest.MapFS{}}
}

// Add places m at <dir>/<unit>/manifest.json (chainable).
func (t *PluginTree) Add(dir, unit string, m *ManifestBuilder) *PluginTree {
	return t.File(path.Join(dir, unit, "manifest.json"), m.JSON())
}

// File places raw data at name (chainable).
func (t *PluginTree) File(name string, data []byte) *PluginTree {
	t.fs[name] = &fstest.MapFile{Data: data}
	return t
}

// FS returns the tree.
func (t *PluginTree) FS() fstest.MapFS { return t.fs }
