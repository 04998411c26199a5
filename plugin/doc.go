// Package plugin discovers tool manifests on disk and binds them to Go
// functions from a Catalog, producing an immutable Registry of tools.
//
// A plugin unit is a sub-directory of a plugin directory holding a
// manifest.json (or manifest.toml):
//
//	{
//	  "name": "calculator",
//	  "description": "Performs basic arithmetic.",
//	  "execution_function": "calculate",
//	  "input_schema": {
//	    "type": "object",
//	    "properties": {"a": {"type": "number"}, "b": {"type": "number"}},
//	    "required": ["a", "b"]
//	  }
//	}
//
// execution_function names an entry in the Catalog. Every schema property must
// be a parameter the catalog function accepts, which is checked once at load
// time. Units that fail any check are skipped and reported through
// Registry.Skipped; only an empty result is fatal.
package plugin
