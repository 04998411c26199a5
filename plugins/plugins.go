// Package plugins bundles the default plugin manifests so the binary works
// without a plugins directory on disk.
package plugins

import "embed"

// Dirs are the bundled plugin directories, in load order.
var Dirs = []string{"core_plugins", "user_plugins"}

// FS holds the bundled manifests.
//
//go:embed core_plugins user_plugins
var FS embed.FS
