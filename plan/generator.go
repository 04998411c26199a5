package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/internal/util"
	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/model"
	"github.com/tathagata1/Pipegent/tool"
)

// DefaultMaxSteps bounds plans when no limit is configured.
const DefaultMaxSteps = 5

// Plan is an ordered list of step descriptions; 1 <= len <= max steps.
type Plan []string

// Options configure a Generator.
type Options struct {
	// MaxSteps caps the plan length. Values below 1 are clamped to 1.
	MaxSteps int
	// Temperature overrides the planning model's default when non-nil.
	Temperature *float64
	Logger      logging.Logger
}

// Generator asks a planning model for a step list and sanitizes the answer.
type Generator struct {
	model model.Model
	specs []tool.Spec
	names []string
	opts  Options
}

// NewGenerator returns a Generator planning against the given tool catalog.
func NewGenerator(m model.Model, specs []tool.Spec, optFns ...func(o *Options)) *Generator {
	opts := Options{
		MaxSteps: DefaultMaxSteps,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.MaxSteps = max(1, opts.MaxSteps)
	opts.Logger = logging.OrNoOp(opts.Logger)

	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}

	return &Generator{model: m, specs: specs, names: names, opts: opts}
}

// MaxSteps returns the effective plan length cap.
func (g *Generator) MaxSteps() int { return g.opts.MaxSteps }

// Plan produces the steps for request, using history as prior conversation.
// It never fails: model errors and unusable answers yield Plan{request}.
func (g *Generator) Plan(ctx context.Context, request string, history []core.Message) Plan {
	start := time.Now()

	messages := make([]core.Message, 0, len(history)+2)
	messages = append(messages, core.SystemMessage(g.SystemPrompt()))
	messages = append(messages, history...)
	messages = append(messages, core.UserMessage(g.UserPrompt(request)))

	resp, err := model.CompleteResponse(ctx, g.model, model.Request{
		Messages:    messages,
		Temperature: g.opts.Temperature,
	})
	logging.RecordLLMCall(g.opts.Logger, g.model.Info().Name, resp.TotalTokens(), time.Since(start), err)
	if err != nil {
		g.opts.Logger.Warn("plan.model_error", "error", err.Error())
		return Plan{request}
	}

	g.opts.Logger.Debug("plan.response", "content", resp.Content)

	steps := g.parse(resp.Content)
	if len(steps) == 0 {
		g.opts.Logger.Info("plan.fallback", "reason", "no usable steps")
		return Plan{request}
	}
	if len(steps) > g.opts.MaxSteps {
		steps = steps[:g.opts.MaxSteps]
	}

	g.opts.Logger.Info("plan.generated", "steps", len(steps), "duration_ms", time.Since(start).Milliseconds())

	return steps
}

// parse extracts the filtered step list from the model answer.
func (g *Generator) parse(content string) Plan {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(util.StripCodeFence(content)), &parsed); err != nil {
		g.opts.Logger.Debug("plan.parse_failed", "error", err.Error())
		return nil
	}

	candidates, ok := parsed["steps"].([]any)
	if !ok {
		g.opts.Logger.Debug("plan.parse_failed", "error", "missing steps list")
		return nil
	}

	steps := make(Plan, 0, len(candidates))
	for _, raw := range candidates {
		step := strings.TrimSpace(util.FormatValue(raw))
		switch {
		case step == "" || raw == nil:
			continue
		case IsFiller(step):
			g.opts.Logger.Debug("plan.step.dropped", "step", step, "reason", "filler")
			continue
		case !MentionsTool(step, g.names):
			g.opts.Logger.Debug("plan.step.dropped", "step", step, "reason", "no tool mentioned")
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

// SystemPrompt returns the planning system prompt.
func (g *Generator) SystemPrompt() string {
	return util.MustRenderTemplate(systemPromptTemplate, map[string]any{"MaxSteps": g.opts.MaxSteps})
}

// UserPrompt returns the planning prompt embedding request and the tool catalog.
func (g *Generator) UserPrompt(request string) string {
	return util.MustRenderTemplate(userPromptTemplate, map[string]any{
		"Request":  request,
		"Tools":    g.catalog(),
		"MaxSteps": g.opts.MaxSteps,
	})
}

func (g *Generator) catalog() string {
	if len(g.specs) == 0 {
		return noPlugins
	}
	lines := make([]string, 0, len(g.specs))
	for _, s := range g.specs {
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Name, s.Description))
	}
	return strings.Join(lines, "\n")
}
