package plugin

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
)

const defaultDescription = "No description provided."

// Manifest is the validated, normalized form of a plugin manifest.
type Manifest struct {
	Name              string
	Description       string
	ExecutionFunction string
	InputSchema       map[string]any
}

// readManifest loads the manifest of the unit at dir. manifest.json takes
// precedence over manifest.toml.
func readManifest(fsys fs.FS, dir string) (map[string]any, error) {
	if data, err := fs.ReadFile(fsys, path.Join(dir, "manifest.json")); err == nil {
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid manifest.json: %w", err)
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, invalid("Manifest root must be a JSON object")
		}
		return obj, nil
	}

	data, err := fs.ReadFile(fsys, path.Join(dir, "manifest.toml"))
	if err != nil {
		return nil, ErrMissingManifest
	}
	var obj map[string]any
	if _, err := toml.Decode(string(data), &obj); err != nil {
		return nil, fmt.Errorf("invalid manifest.toml: %w", err)
	}
	return obj, nil
}

// ValidateManifest checks a decoded manifest and returns its normalized form.
func ValidateManifest(raw map[string]any) (Manifest, error) {
	if raw == nil {
		return Manifest{}, invalid("Manifest root must be a JSON object")
	}

	name, ok := raw["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return Manifest{}, invalid("'name' must be a non-empty string")
	}

	description := defaultDescription
	if v, present := raw["description"]; present {
		s, ok := v.(string)
		if !ok {
			return Manifest{}, invalid("'description' must be a string")
		}
		description = s
	}

	fn, ok := raw["execution_function"].(string)
	if !ok || strings.TrimSpace(fn) == "" {
		return Manifest{}, invalid("'execution_function' must be a non-empty string")
	}

	schema, err := NormalizeInputSchema(raw["input_schema"])
	if err != nil {
		return Manifest{}, err
	}

	return Manifest{
		Name:              strings.TrimSpace(name),
		Description:       strings.TrimSpace(description),
		ExecutionFunction: strings.TrimSpace(fn),
		InputSchema:       schema,
	}, nil
}

// NormalizeInputSchema validates an input_schema value and fills in the
// defaults: type "object", empty properties and an empty required list.
// Unknown keywords are preserved.
func NormalizeInputSchema(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		}, nil
	}

	schema, ok := v.(map[string]any)
	if !ok {
		return nil, invalid("input_schema must be a JSON object")
	}

	if t, present := schema["type"]; present && t != "object" {
		return nil, invalid("input_schema.type must be 'object'")
	}

	properties := map[string]any{}
	if p, present := schema["properties"]; present {
		props, ok := p.(map[string]any)
		if !ok {
			return nil, invalid("input_schema.properties must be an object")
		}
		properties = props
	}

	required := []string{}
	if r, present := schema["required"]; present && r != nil {
		list, ok := r.([]any)
		if !ok {
			return nil, invalid("input_schema.required must be an array of strings")
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, invalid("input_schema.required must be an array of strings")
			}
			required = append(required, s)
		}
	}

	normalized := make(map[string]any, len(schema)+3)
	for k, val := range schema {
		normalized[k] = val
	}
	normalized["type"] = "object"
	normalized["properties"] = properties
	normalized["required"] = required

	return normalized, nil
}
