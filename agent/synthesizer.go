package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/internal/util"
	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/model"
)

const summarySystemPrompt = "You are Pipegent's planning LLM. Given the original request and the outputs " +
	"from each executed step, craft a final response for the user that cites the " +
	"completed work."

// Preview is one step's output as shown to the synthesizing model.
type Preview struct {
	Step          string `json:"step"`
	OutputPreview string `json:"output_preview"`
}

type synthesisPayload struct {
	UserRequest string    `json:"user_request"`
	Steps       []string  `json:"steps"`
	Results     []Preview `json:"results"`
}

// SynthesizerOptions configure a Synthesizer.
type SynthesizerOptions struct {
	// Temperature overrides the model's default when non-nil.
	Temperature *float64
	Logger      logging.Logger
}

// Synthesizer turns executed step outputs into the final user-facing answer.
type Synthesizer struct {
	model model.Model
	opts  SynthesizerOptions
}

// NewSynthesizer returns a Synthesizer backed by m.
func NewSynthesizer(m model.Model, optFns ...func(o *SynthesizerOptions)) *Synthesizer {
	opts := SynthesizerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Synthesizer{model: m, opts: opts}
}

// Synthesize asks the model for the final answer to request given the plan
// steps and the output previews of the executed steps.
func (s *Synthesizer) Synthesize(ctx context.Context, request string, steps []string, previews []Preview) (string, error) {
	if steps == nil {
		steps = []string{}
	}
	if previews == nil {
		previews = []Preview{}
	}

	payload, err := util.MarshalNoEscape(synthesisPayload{
		UserRequest: request,
		Steps:       steps,
		Results:     previews,
	}, "")
	if err != nil {
		return "", fmt.Errorf("encode synthesis payload: %w", err)
	}

	start := time.Now()
	resp, err := model.CompleteResponse(ctx, s.model, model.Request{
		Messages: []core.Message{
			core.SystemMessage(summarySystemPrompt),
			core.UserMessage("Craft the final response for the user using this context:\n" + string(payload)),
		},
		Temperature: s.opts.Temperature,
	})
	logging.RecordLLMCall(s.opts.Logger, s.model.Info().Name, resp.TotalTokens(), time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	s.opts.Logger.Info("synthesizer.completed",
		"steps", len(steps),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return strings.TrimSpace(resp.Content), nil
}
