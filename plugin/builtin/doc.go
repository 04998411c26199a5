// Package builtin provides the Go implementations behind the plugin manifests
// shipped in the plugins directory: arithmetic, text utilities, clock and id
// helpers, randomness, SQLite queries, the speech terminal tool and
// clear_context.
package builtin
