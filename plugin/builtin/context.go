package builtin

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tathagata1/Pipegent/core"
)

// speech is the terminal tool: its comment is the answer shown to the user.
func speech(_ *core.ToolContext, args map[string]any) (any, error) {
	return stringArg(args, "comment")
}

// pathProvider is implemented by file backed history stores.
type pathProvider interface {
	Path() string
}

func (b *builtins) clearContext(tc *core.ToolContext, args map[string]any) (any, error) {
	if b.opts.History == nil {
		return nil, errors.New("context file location is not configured")
	}

	if err := b.opts.History.Reset(tc.Context()); err != nil {
		return nil, fmt.Errorf("reset context history: %w", err)
	}

	location := "in-memory"
	if p, ok := b.opts.History.(pathProvider); ok && p.Path() != "" {
		location = filepath.Base(p.Path())
	}

	msg := fmt.Sprintf("Context history reset (%s).", location)
	if reason := optionalString(args, "reason"); reason != "" {
		msg += " Reason: " + reason
	}
	tc.LogInfo("context.cleared", "location", location)
	return msg, nil
}
