package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/tool"
)

// Options configure Load.
type Options struct {
	Logger logging.Logger
}

// Registry is the immutable set of tools produced by Load.
type Registry struct {
	tools   map[string]tool.Tool
	order   []string
	skipped []*LoadError
}

// Load scans each directory in dirs (paths inside fsys) for plugin units,
// in lexical order, and binds their manifests against catalog. Directories
// that do not exist contribute nothing. Units that fail are skipped; if no
// unit loads at all, Load returns ErrEmptyRegistry.
func Load(fsys fs.FS, dirs []string, catalog Catalog, optFns ...func(o *Options)) (*Registry, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	r := &Registry{tools: make(map[string]tool.Tool)}

	for _, dir := range dirs {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("plugin.dir.missing", "dir", dir)
				continue
			}
			r.skipped = append(r.skipped, &LoadError{Unit: path.Base(dir), Path: dir, Err: err})
			logger.Warn("plugin.dir.unreadable", "dir", dir, "error", err.Error())
			continue
		}

		loaded := 0
		for _, entry := range entries { // ReadDir returns entries sorted by name
			if !entry.IsDir() {
				continue
			}
			unitPath := path.Join(dir, entry.Name())
			if err := r.loadUnit(fsys, unitPath, catalog); err != nil {
				loadErr := &LoadError{Unit: entry.Name(), Path: unitPath, Err: err}
				r.skipped = append(r.skipped, loadErr)
				logger.Warn("plugin.skipped", "unit", entry.Name(), "dir", dir, "error", err.Error())
				continue
			}
			loaded++
		}
		logger.Info("plugin.dir.loaded", "dir", dir, "loaded", loaded)
	}

	if len(r.tools) == 0 {
		return nil, ErrEmptyRegistry
	}

	logger.Info("plugin.registry.ready", "tools", len(r.tools), "skipped", len(r.skipped))

	return r, nil
}

func (r *Registry) loadUnit(fsys fs.FS, unitPath string, catalog Catalog) error {
	raw, err := readManifest(fsys, unitPath)
	if err != nil {
		return err
	}

	m, err := ValidateManifest(raw)
	if err != nil {
		return err
	}

	fn, ok := catalog[m.ExecutionFunction]
	if !ok || fn.Fn == nil {
		return fmt.Errorf("%w: '%s'", ErrUnknownFunction, m.ExecutionFunction)
	}

	if err := bind(m, fn); err != nil {
		return err
	}

	if _, exists := r.tools[m.Name]; exists {
		return fmt.Errorf("%w: '%s'", ErrDuplicateName, m.Name)
	}

	r.tools[m.Name] = tool.NewFunctionTool(m.Name, m.Description, m.InputSchema, fn.Fn)
	r.order = append(r.order, m.Name)

	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (tool.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns a copy of the name to tool mapping.
func (r *Registry) Tools() map[string]tool.Tool {
	out := make(map[string]tool.Tool, len(r.tools))
	for k, v := range r.tools {
		out[k] = v
	}
	return out
}

// Specs returns the tool specs in load order.
func (r *Registry) Specs() []tool.Spec {
	specs := make([]tool.Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, tool.SpecOf(r.tools[name]))
	}
	return specs
}

// Names returns tool names sorted for deterministic output.
func (r *Registry) Names() []string {
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// Len returns the number of loaded tools.
func (r *Registry) Len() int { return len(r.tools) }

// Skipped returns the diagnostics of every unit that was not loaded.
func (r *Registry) Skipped() []*LoadError {
	return append([]*LoadError(nil), r.skipped...)
}
