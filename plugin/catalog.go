package plugin

import (
	"fmt"
	"sort"

	"github.com/tathagata1/Pipegent/internal/util"
	"github.com/tathagata1/Pipegent/tool"
)

// Function is a Go implementation a manifest can bind to. Params lists the
// argument names the function accepts.
type Function struct {
	Params []string
	Fn     tool.Func
}

// Catalog maps execution_function names to implementations.
type Catalog map[string]Function

// Merge returns a new catalog holding the entries of c and others. Later
// entries win on name collision.
func (c Catalog) Merge(others ...Catalog) Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Names returns the sorted function names.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// bind checks that the manifest's schema fits fn's parameter list.
func bind(m Manifest, fn Function) error {
	accepted := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		accepted[p] = true
	}

	declared := make(map[string]bool)
	for _, prop := range util.PropertyNames(m.InputSchema) {
		if !accepted[prop] {
			return fmt.Errorf("%w: property '%s' is not a parameter of '%s'", ErrParameterMismatch, prop, m.ExecutionFunction)
		}
		declared[prop] = true
	}

	for _, req := range util.RequiredFields(m.InputSchema) {
		if !declared[req] {
			return fmt.Errorf("%w: required '%s' is not a declared property", ErrParameterMismatch, req)
		}
	}

	return nil
}
