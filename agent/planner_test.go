package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tathagata1/Pipegent/artifact"
	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/executor"
	"github.com/tathagata1/Pipegent/internal/testutil"
	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/memory"
	"github.com/tathagata1/Pipegent/model"
	"github.com/tathagata1/Pipegent/plan"
	"github.com/tathagata1/Pipegent/plugin"
	"github.com/tathagata1/Pipegent/plugin/builtin"
)

type fixture struct {
	plannerModel  *model.MockModel
	executorModel *model.MockModel
	artifacts     *artifact.FileStore
	history       *memory.FileStore
	planner       *Planner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fsys := testutil.NewPluginTree().
		Add("plugins/core", "calculator", testutil.NewManifest("calculator").
			Description("Performs basic arithmetic on two numbers.").
			Property("a", "number").
			Property("b", "number").
			Property("operation", "string").
			Required("a", "b", "operation")).
		Add("plugins/core", "speech", testutil.NewManifest("speech").
			Description("Deliver a final natural-language reply to the user.").
			Property("comment", "string").
			Required("comment")).
		FS()
	reg, err := plugin.Load(fsys, []string{"plugins/core"}, builtin.Catalog())
	require.NoError(t, err)

	dir := t.TempDir()
	artifacts, err := artifact.NewFileStore(filepath.Join(dir, "tempstore"))
	require.NoError(t, err)

	history, err := memory.CreateFileStore(context.Background(), filepath.Join(dir, "context_history.json"))
	require.NoError(t, err)

	f := &fixture{
		plannerModel:  model.NewMockModel("planner", "mock"),
		executorModel: model.NewMockModel("executor", "mock"),
		artifacts:     artifacts,
		history:       history,
	}

	f.planner = NewPlanner(
		plan.NewGenerator(f.plannerModel, reg.Specs()),
		executor.New(f.executorModel, reg),
		NewSynthesizer(f.plannerModel),
		artifacts,
	)
	return f
}

func (f *fixture) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.artifacts.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestHandle_CalculatorScenario(t *testing.T) {
	f := newFixture(t)

	f.plannerModel.Enqueue(
		testutil.Steps("Use calculator to add 2 and 3"),
		"Step 1 used the calculator: 2 + 3 = 5.",
	)
	f.executorModel.Enqueue(
		testutil.ToolCall("calculator", map[string]any{"a": 2, "b": 3, "operation": "add"}),
		testutil.ToolCall("speech", map[string]any{"comment": "The result is 5"}),
	)

	out := f.planner.Handle(context.Background(), f.history, "add 2 and 3")
	assert.Equal(t, "Step 1 used the calculator: 2 + 3 = 5.", out)

	execReqs := f.executorModel.Requests()
	require.Len(t, execReqs, 2)
	first := execReqs[0].Messages[1].Content
	assert.Contains(t, first, "Original request:\nadd 2 and 3")
	assert.Contains(t, first, "You are executing plan step #1: Use calculator to add 2 and 3.")
	assert.Contains(t, first, "Previous step outputs:\nNone yet.")
	assert.Equal(t, "Tool 'calculator' result: 5", execReqs[1].Messages[3].Content)

	planReqs := f.plannerModel.Requests()
	require.Len(t, planReqs, 2)
	synthesis := planReqs[1].Messages[1].Content
	assert.True(t, strings.HasPrefix(synthesis, "Craft the final response for the user using this context:\n"))
	assert.Contains(t, synthesis, `"steps":["Use calculator to add 2 and 3"]`)
	assert.Contains(t, synthesis, `"output_preview":"The result is 5"`)

	assert.Empty(t, f.leftovers(t))

	entries := f.history.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, core.UserMessage("Previous request:\nadd 2 and 3"), entries[0])
	assert.Equal(t, core.RoleAssistant, entries[1].Role)

	prefix := "Completed prior interaction:\n"
	require.True(t, strings.HasPrefix(entries[1].Content, prefix))
	var summary struct {
		Steps   []string `json:"steps"`
		Results []struct {
			Step          string `json:"step"`
			ResultPreview string `json:"result_preview"`
		} `json:"results"`
		FinalResponse string `json:"final_response"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(entries[1].Content, prefix)), &summary))
	assert.Equal(t, []string{"Use calculator to add 2 and 3"}, summary.Steps)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "The result is 5", summary.Results[0].ResultPreview)
	assert.Equal(t, out, summary.FinalResponse)
}

func TestHandle_PreviousOutputsReadFromArtifacts(t *testing.T) {
	f := newFixture(t)

	f.plannerModel.Enqueue(
		`{"steps": ["Use calculator to add 2 and 3", "Use calculator to multiply step 1 result by 4"]}`,
		"20",
	)
	f.executorModel.Enqueue(
		`{"tool":"calculator","args":{"a":2,"b":3,"operation":"add"}}`,
		"5",
		`{"tool":"calculator","args":{"a":5,"b":4,"operation":"multiply"}}`,
		`{"tool":"speech","args":{"comment":"20"}}`,
	)

	out := f.planner.Handle(context.Background(), f.history, "compute (2+3)*4")
	assert.Equal(t, "20", out)

	execReqs := f.executorModel.Requests()
	require.Len(t, execReqs, 4)
	second := execReqs[2].Messages[1].Content
	assert.Contains(t, second, "You are executing plan step #2: Use calculator to multiply step 1 result by 4.")
	assert.Contains(t, second, "Step 1: Use calculator to add 2 and 3\nFile: "+f.artifacts.Dir())
	assert.Contains(t, second, ".txt\nOutput preview: 5")

	assert.Empty(t, f.leftovers(t))
}

func TestHandle_ExecutorFailureCleansUp(t *testing.T) {
	f := newFixture(t)

	f.plannerModel.Enqueue(`{"steps": ["Use calculator to add 1 and 1", "Use calculator to add 2 and 2"]}`)
	f.executorModel.Enqueue(`{"tool":"speech","args":{"comment":"2"}}`)
	f.executorModel.EnqueueError(errors.New("connection reset"))

	out := f.planner.Handle(context.Background(), f.history, "add things")
	assert.True(t, strings.HasPrefix(out, "Planner error: "), out)
	assert.Contains(t, out, "connection reset")
	assert.Empty(t, f.leftovers(t))

	entries := f.history.Entries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].Content, `"final_response":"Planner error: `)
	assert.Contains(t, entries[1].Content, `"result_preview":"2"`)
}

func TestHandle_UnknownToolStep(t *testing.T) {
	f := newFixture(t)

	f.plannerModel.Enqueue(`{"steps": ["Use calculator to teleport"]}`, "I could not do that.")
	f.executorModel.Enqueue(`{"tool":"teleport","args":{}}`)

	out := f.planner.Handle(context.Background(), f.history, "teleport me")
	assert.Equal(t, "I could not do that.", out)
	assert.Equal(t, 1, f.executorModel.Calls())

	synthesis := f.plannerModel.Requests()[1].Messages[1].Content
	assert.Contains(t, synthesis, `"output_preview":"Unknown tool: teleport"`)
}

func TestHandle_ExternalResetDetected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.plannerModel.Enqueue(`{"steps": ["Use calculator to add 2 and 3"]}`, "5")
	f.executorModel.Enqueue(`{"tool":"speech","args":{"comment":"5"}}`)
	f.planner.Handle(ctx, f.history, "add 2 and 3")
	require.Len(t, f.history.Entries(), 2)

	require.NoError(t, os.WriteFile(f.history.Path(), []byte("[]"), 0o644))

	f.plannerModel.Enqueue(`{"steps": ["Use calculator to add 1 and 1"]}`, "2")
	f.executorModel.Enqueue(`{"tool":"speech","args":{"comment":"2"}}`)
	f.planner.Handle(ctx, f.history, "add 1 and 1")

	reqs := f.plannerModel.Requests()
	require.Len(t, reqs, 4)
	planReq := reqs[2].Messages
	require.Len(t, planReq, 2, "plan request should carry no history after an external reset")
	assert.Equal(t, core.RoleSystem, planReq[0].Role)
	assert.Equal(t, core.RoleUser, planReq[1].Role)

	assert.Len(t, f.history.Entries(), 2)
}

func TestHandle_HistoryFeedsNextPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.plannerModel.Enqueue(`{"steps": ["Use calculator to add 2 and 3"]}`, "5")
	f.executorModel.Enqueue(`{"tool":"speech","args":{"comment":"5"}}`)
	f.planner.Handle(ctx, f.history, "add 2 and 3")

	f.plannerModel.Enqueue(`{"steps": ["Use calculator to double it"]}`, "10")
	f.executorModel.Enqueue(`{"tool":"speech","args":{"comment":"10"}}`)
	f.planner.Handle(ctx, f.history, "double it")

	planReq := f.plannerModel.Requests()[2].Messages
	require.Len(t, planReq, 4)
	assert.Equal(t, "Previous request:\nadd 2 and 3", planReq[1].Content)

	reloaded := memory.NewFileStore(f.history.Path())
	entries, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.history.Entries(), entries)
	assert.Len(t, entries, 4)
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(context.Context, string) (string, error) { panic("kaboom") }

type staticPlanner plan.Plan

func (s staticPlanner) Plan(context.Context, string, []core.Message) plan.Plan { return plan.Plan(s) }

func TestHandle_PanicIsReported(t *testing.T) {
	artifacts := artifact.NewInMemoryStore()
	history := memory.NewInMemoryStore()

	p := NewPlanner(staticPlanner{"Use calculator"}, panickingExecutor{}, NewSynthesizer(model.NewMockModel("s", "mock")), artifacts)

	out := p.Handle(context.Background(), history, "anything")
	assert.Equal(t, "Planner error: kaboom", out)
	assert.Len(t, history.Entries(), 2)
}

func TestHandle_PanicIsLoggedWithStack(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := logging.DefaultLoggerConfig()
	cfg.Output = buf
	cfg.AddSource = false

	p := NewPlanner(staticPlanner{"Use calculator"}, panickingExecutor{},
		NewSynthesizer(model.NewMockModel("s", "mock")), artifact.NewInMemoryStore(),
		func(o *Options) { o.Logger = logging.NewLogger(cfg) })

	p.Handle(context.Background(), memory.NewInMemoryStore(), "anything")

	var panicLine map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "planner.panic" {
			panicLine = entry
		}
	}
	require.NotNil(t, panicLine)
	assert.Equal(t, "kaboom", panicLine["error"])
	assert.Contains(t, panicLine["stack_trace"], "goroutine")
}

type recordingExecutor struct {
	instructions []string
	outputs      []string
}

func (r *recordingExecutor) Execute(_ context.Context, instruction string) (string, error) {
	r.instructions = append(r.instructions, instruction)
	out := r.outputs[0]
	r.outputs = r.outputs[1:]
	return out, nil
}

func TestHandle_InMemoryArtifactsDeleted(t *testing.T) {
	artifacts := artifact.NewInMemoryStore()
	ex := &recordingExecutor{outputs: []string{strings.Repeat("x", 400), "done"}}
	synth := model.NewMockModel("s", "mock")
	synth.Enqueue("  final  ")

	p := NewPlanner(staticPlanner{"step one", "step two"}, ex, NewSynthesizer(synth), artifacts)

	out := p.Handle(context.Background(), memory.NewInMemoryStore(), "req")
	assert.Equal(t, "final", out)

	require.Len(t, ex.instructions, 2)
	assert.Contains(t, ex.instructions[1], "Output preview: "+strings.Repeat("x", 300)+"\n\n")
	assert.NotContains(t, ex.instructions[1], strings.Repeat("x", 301))

	assert.Equal(t, 0, artifacts.Len())
}

func TestBuildInstruction_FallsBackToResult(t *testing.T) {
	artifacts := artifact.NewInMemoryStore()
	prior := []StepResult{{Step: "Use speech", Result: "hello", ArtifactPath: "mem://missing"}}

	got := BuildInstruction(artifacts, "run", "req", "Use calculator", 2, prior)
	assert.Contains(t, got, "Step 1: Use speech\nFile: mem://missing\nOutput preview: hello")
	assert.Contains(t, got, "You are executing plan step #2: Use calculator.")
}

func TestSynthesizer(t *testing.T) {
	m := model.NewMockModel("s", "mock")
	m.Enqueue("\n  Here is <your> answer \n")

	s := NewSynthesizer(m, func(o *SynthesizerOptions) { o.Temperature = model.Temperature(0.3) })
	out, err := s.Synthesize(context.Background(), "a < b & c", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Here is <your> answer", out)

	req := m.Requests()[0]
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.3, *req.Temperature)
	assert.Equal(t, summarySystemPrompt, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, `{"user_request":"a < b & c","steps":[],"results":[]}`)
}

func TestSynthesizer_ModelError(t *testing.T) {
	m := model.NewMockModel("s", "mock")
	m.EnqueueError(errors.New("quota exceeded"))

	_, err := NewSynthesizer(m).Synthesize(context.Background(), "req", []string{"s"}, []Preview{{Step: "s", OutputPreview: "o"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
