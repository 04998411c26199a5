package builtin

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tathagata1/Pipegent/core"
)

func (b *builtins) getDate(_ *core.ToolContext, _ map[string]any) (any, error) {
	return b.opts.Now().Format("2006-01-02"), nil
}

func (b *builtins) getTime(_ *core.ToolContext, _ map[string]any) (any, error) {
	return b.opts.Now().Format("15:04:05"), nil
}

func uuidGenerator(_ *core.ToolContext, args map[string]any) (any, error) {
	count, err := uuidCount(args)
	if err != nil {
		return nil, err
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids, nil
}

func uuidCount(args map[string]any) (int, error) {
	count, err := intArgDefault(args, "count", 1)
	if err != nil {
		return 0, err
	}
	if count <= 0 || count > 20 {
		return 0, fmt.Errorf("count must be between 1 and 20")
	}
	return count, nil
}
