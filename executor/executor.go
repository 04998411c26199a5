package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/internal/util"
	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/model"
	"github.com/tathagata1/Pipegent/tool"
)

// DefaultSpeechTool is the name of the terminal tool whose output is the answer.
const DefaultSpeechTool = "speech"

// Registry is the read-only tool catalog the executor dispatches against.
// *plugin.Registry satisfies it.
type Registry interface {
	Get(name string) (tool.Tool, bool)
	Specs() []tool.Spec
}

// Options configure an Executor.
type Options struct {
	// SpeechTool names the terminal tool. Defaults to "speech".
	SpeechTool string
	// Temperature is sent with every executor call. Defaults to 0.
	Temperature *float64
	Logger      logging.Logger
}

// Executor runs single instructions through the two-round tool protocol.
// It is stateless between calls and safe for concurrent use.
type Executor struct {
	model        model.Model
	registry     Registry
	systemPrompt string
	opts         Options
}

// New returns an Executor dispatching against registry.
func New(m model.Model, registry Registry, optFns ...func(o *Options)) *Executor {
	opts := Options{
		SpeechTool:  DefaultSpeechTool,
		Temperature: model.Temperature(0),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SpeechTool == "" {
		opts.SpeechTool = DefaultSpeechTool
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Executor{
		model:        m,
		registry:     registry,
		systemPrompt: BuildSystemPrompt(registry.Specs(), opts.SpeechTool),
		opts:         opts,
	}
}

// SystemPrompt returns the system prompt sent with every instruction.
func (e *Executor) SystemPrompt() string { return e.systemPrompt }

// Execute runs instruction and returns the step's answer text. Tool failures
// are folded into the answer; only model transport failures are returned as
// errors.
func (e *Executor) Execute(ctx context.Context, instruction string) (string, error) {
	r := &run{
		e: e,
		messages: []core.Message{
			core.SystemMessage(e.systemPrompt),
			core.UserMessage(instruction),
		},
		modelCalls: core.NewCallLimiter("model", 2),
		toolCalls:  core.NewCallLimiter("tool", 2),
		state:      StateAwaitResponse1,
		runID:      core.RunIDFrom(ctx),
	}

	for r.state != StateTerminal {
		next, err := r.step(ctx)
		if err != nil {
			e.opts.Logger.Error("executor.failed", "state", r.state.String(), "error", err.Error())
			return "", err
		}
		e.opts.Logger.Debug("executor.transition", "from", r.state.String(), "to", next.String())
		r.state = next
	}

	return r.answer, nil
}

// run is the per-instruction protocol state.
type run struct {
	e          *Executor
	messages   []core.Message
	modelCalls *core.CallLimiter
	toolCalls  *core.CallLimiter
	state      State
	runID      string

	content  string
	envelope Envelope
	answer   string
}

func (r *run) step(ctx context.Context) (State, error) {
	switch r.state {
	case StateAwaitResponse1:
		return StateParseEnvelope1, r.awaitResponse(ctx)
	case StateAwaitResponse2:
		return StateParseEnvelope2, r.awaitResponse(ctx)
	case StateParseEnvelope1:
		return r.parse(StateDispatch1), nil
	case StateParseEnvelope2:
		return r.parse(StateDispatch2), nil
	case StateDispatch1:
		return r.dispatch(ctx, true)
	case StateDispatch2:
		return r.dispatch(ctx, false)
	default:
		return StateTerminal, fmt.Errorf("executor: unexpected state %s", r.state)
	}
}

func (r *run) awaitResponse(ctx context.Context) error {
	if err := r.modelCalls.Increment(); err != nil {
		return err
	}

	start := time.Now()
	resp, err := model.CompleteResponse(ctx, r.e.model, model.Request{
		Messages:    core.CloneMessages(r.messages),
		Temperature: r.e.opts.Temperature,
	})
	logging.RecordLLMCall(r.e.opts.Logger, r.e.model.Info().Name, resp.TotalTokens(), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("executor model call (round %d): %w", r.state.Round(), err)
	}

	r.content = strings.TrimSpace(resp.Content)
	r.messages = append(r.messages, core.AssistantMessage(r.content))

	r.e.opts.Logger.Info("executor.round",
		"round", r.state.Round(),
		"run_id", r.runID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// parse moves to dispatch when the response is a tool call and otherwise
// returns the response text as the answer.
func (r *run) parse(dispatch State) State {
	env, ok := ParseEnvelope(r.content)
	if !ok {
		r.answer = r.content
		return StateTerminal
	}
	r.envelope = env
	return dispatch
}

func (r *run) dispatch(ctx context.Context, firstRound bool) (State, error) {
	name := r.envelope.Tool

	t, ok := r.e.registry.Get(name)
	if !ok {
		r.e.opts.Logger.Warn("executor.unknown_tool", "tool", name)
		r.answer = "Unknown tool: " + name
		return StateTerminal, nil
	}

	if err := r.toolCalls.Increment(); err != nil {
		return StateTerminal, err
	}

	tc := core.NewToolContext(ctx, r.runID, core.NewID(), r.e.opts.Logger)
	callStart := time.Now()
	result, err := t.Call(tc, r.envelope.Args)
	logging.RecordToolCall(r.e.opts.Logger, name, time.Since(callStart), err)
	if err != nil {
		r.answer = fmt.Sprintf("Tool '%s' error: %s", name, tool.ErrorMessage(err))
		return StateTerminal, nil
	}

	value := util.FormatValue(result)

	if !firstRound || name == r.e.opts.SpeechTool {
		r.answer = value
		return StateTerminal, nil
	}

	r.messages = append(r.messages, core.UserMessage(fmt.Sprintf("Tool '%s' result: %s", name, value)))
	return StateAwaitResponse2, nil
}
