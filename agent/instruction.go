package agent

import (
	"fmt"
	"strings"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/internal/util"
)

const (
	instructionPreviewLen = 300
	synthesisPreviewLen   = 1000
	historyPreviewLen     = 500
)

// StepResult records one executed step.
type StepResult struct {
	Step         string
	Result       string
	ArtifactPath string
}

// readBack returns the artifact content for r, or the in-memory result when
// the artifact cannot be read.
func readBack(artifacts core.ArtifactStore, runID string, r StepResult) string {
	if r.ArtifactPath == "" || artifacts == nil {
		return r.Result
	}
	data, err := artifacts.Get(runID, r.ArtifactPath)
	if err != nil {
		return r.Result
	}
	return string(data)
}

// BuildInstruction renders the executor instruction for step number index
// (1-based) of request. prior holds the steps already executed in this run.
func BuildInstruction(artifacts core.ArtifactStore, runID, request, step string, index int, prior []StepResult) string {
	previous := "None yet."
	if len(prior) > 0 {
		sections := make([]string, 0, len(prior))
		for i, r := range prior {
			preview := util.Truncate(readBack(artifacts, runID, r), instructionPreviewLen)
			sections = append(sections, fmt.Sprintf("Step %d: %s\nFile: %s\nOutput preview: %s", i+1, r.Step, r.ArtifactPath, preview))
		}
		previous = strings.Join(sections, "\n\n")
	}

	return fmt.Sprintf("Original request:\n%s\n\n"+
		"You are executing plan step #%d: %s.\n"+
		"Previous step outputs:\n%s\n\n"+
		"Use the available tools to accomplish this step. Execute it exactly once - do not loop or batch. "+
		"Keep tool arguments singular (for example, leave roll_dice 'rolls' at 1 unless this step explicitly says otherwise).",
		request, index, step, previous)
}
