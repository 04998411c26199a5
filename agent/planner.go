package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/internal/util"
	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/plan"
)

// StepPlanner produces the plan for a request. *plan.Generator satisfies it.
type StepPlanner interface {
	Plan(ctx context.Context, request string, history []core.Message) plan.Plan
}

// StepExecutor runs a single step instruction. *executor.Executor satisfies it.
type StepExecutor interface {
	Execute(ctx context.Context, instruction string) (string, error)
}

// Options configure a Planner.
type Options struct {
	Logger logging.Logger
}

// Planner orchestrates plan, execute, synthesize and persist for one request
// at a time.
type Planner struct {
	planner     StepPlanner
	executor    StepExecutor
	synthesizer *Synthesizer
	artifacts   core.ArtifactStore
	opts        Options

	mu sync.Mutex
}

// NewPlanner wires the orchestrator's collaborators.
func NewPlanner(p StepPlanner, ex StepExecutor, s *Synthesizer, artifacts core.ArtifactStore, optFns ...func(o *Options)) *Planner {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Planner{
		planner:     p,
		executor:    ex,
		synthesizer: s,
		artifacts:   artifacts,
		opts:        opts,
	}
}

type historyResult struct {
	Step          string `json:"step"`
	ResultPreview string `json:"result_preview"`
}

type historySummary struct {
	Steps         []string        `json:"steps"`
	Results       []historyResult `json:"results"`
	FinalResponse string          `json:"final_response"`
}

// run carries the state of one Handle call so cleanup and history can see
// whatever was produced before a failure.
type run struct {
	id       string
	steps    []string
	results  []StepResult
	produced []string
}

// Handle processes request and returns the final answer. Errors and panics
// are folded into a "Planner error: ..." answer. Artifacts created while
// handling the request are always deleted.
func (p *Planner) Handle(ctx context.Context, history core.HistoryStore, request string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := &run{id: core.NewID()}
	ctx = core.WithRunID(ctx, r.id)
	log := p.opts.Logger
	start := time.Now()

	log.Info("planner.request", "run_id", r.id)

	final, err := p.execute(ctx, history, request, r)
	if err != nil {
		log.Error("planner.failed", "run_id", r.id, "error", err.Error())
		final = "Planner error: " + err.Error()
	}

	p.cleanup(r)

	if final != "" {
		if err := history.Append(ctx, historyPair(request, r, final)...); err != nil {
			log.Warn("planner.history.append_failed", "run_id", r.id, "error", err.Error())
		}
	}

	logging.RecordPlanExecution(log, len(r.results), time.Since(start), err)

	return final
}

func (p *Planner) execute(ctx context.Context, history core.HistoryStore, request string, r *run) (final string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
			logging.RecordPanic(p.opts.Logger, err, "planner.panic", "run_id", r.id)
		}
	}()

	if err := history.RefreshIfStale(ctx); err != nil {
		p.opts.Logger.Warn("planner.history.refresh_failed", "run_id", r.id, "error", err.Error())
	}

	r.steps = p.planner.Plan(ctx, request, history.Entries())

	for i, step := range r.steps {
		instruction := BuildInstruction(p.artifacts, r.id, request, step, i+1, r.results)

		out, err := p.executor.Execute(ctx, instruction)
		if err != nil {
			return "", err
		}

		ref, err := p.artifacts.Save(r.id, []byte(out))
		if err != nil {
			return "", fmt.Errorf("save step %d result: %w", i+1, err)
		}
		r.produced = append(r.produced, ref)
		r.results = append(r.results, StepResult{Step: step, Result: out, ArtifactPath: ref})

		p.opts.Logger.Debug("planner.step.completed", "run_id", r.id, "step", i+1, "artifact", ref)
	}

	previews := make([]Preview, 0, len(r.results))
	for _, res := range r.results {
		previews = append(previews, Preview{
			Step:          res.Step,
			OutputPreview: util.Truncate(readBack(p.artifacts, r.id, res), synthesisPreviewLen),
		})
	}

	return p.synthesizer.Synthesize(ctx, request, r.steps, previews)
}

// cleanup deletes every artifact the run produced, plus anything else the
// store still holds for it.
func (p *Planner) cleanup(r *run) {
	refs := r.produced
	if listed, err := p.artifacts.List(r.id); err == nil {
		refs = append(refs, listed...)
	}

	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		if err := p.artifacts.Delete(r.id, ref); err != nil {
			p.opts.Logger.Warn("planner.artifact.delete_failed", "run_id", r.id, "artifact", ref, "error", err.Error())
		}
	}
}

func historyPair(request string, r *run, final string) []core.Message {
	summary := historySummary{
		Steps:         append([]string{}, r.steps...),
		Results:       make([]historyResult, 0, len(r.results)),
		FinalResponse: final,
	}
	for _, res := range r.results {
		summary.Results = append(summary.Results, historyResult{
			Step:          res.Step,
			ResultPreview: util.Truncate(res.Result, historyPreviewLen),
		})
	}

	payload, _ := util.MarshalNoEscape(summary, "")

	return []core.Message{
		core.UserMessage("Previous request:\n" + request),
		core.AssistantMessage("Completed prior interaction:\n" + string(payload)),
	}
}
