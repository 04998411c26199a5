package plan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/model"
	"github.com/tathagata1/Pipegent/tool"
)

func specs() []tool.Spec {
	return []tool.Spec{
		{Name: "calculator", Description: "Performs basic arithmetic."},
		{Name: "roll_dice", Description: "Rolls dice."},
		{Name: "speech", Description: "Talks to the user."},
	}
}

func TestIsFiller(t *testing.T) {
	tests := []struct {
		step string
		want bool
	}{
		{"Greet the user warmly", true},
		{"Say hello using speech", true},
		{"Say hi to the user", true},
		{"Thank the user with speech", true},
		{"Ask if I can assist you today", true},
		{"Offer further assistance via speech", true},
		{"Wait for the user to reply", true},
		{"Check in with the user", true},
		{"Use calculator to compute this sum", true},
		{"Use calculator on the highest value", true},
		{"Explain the result in chinese using speech", true},
		{"Roll dice with roll_dice (rolls=1)", false},
		{"Use calculator to add 2 and 3", false},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFiller(tt.step))
		})
	}
}

func TestMentionsTool(t *testing.T) {
	names := []string{"calculator", "roll_dice"}
	assert.True(t, MentionsTool("Use CALCULATOR to add", names))
	assert.True(t, MentionsTool("roll_dice once", names))
	assert.False(t, MentionsTool("Add the numbers", names))
	assert.False(t, MentionsTool("anything", nil))
}

func TestPlan_FiltersAndBounds(t *testing.T) {
	m := model.NewMockModel("planner", "mock")
	m.Enqueue("```json\n" + `{"steps": [
		"Greet the user",
		"  Use calculator to add 2 and 3  ",
		"",
		"Think really hard",
		"Use calculator to multiply step 1 result by 4",
		"Use roll_dice with rolls=1",
		"Use speech to report the total"
	]}` + "\n```")

	g := NewGenerator(m, specs(), func(o *Options) { o.MaxSteps = 3 })
	plan := g.Plan(context.Background(), "add 2 and 3, times 4, then roll", nil)

	assert.Equal(t, Plan{
		"Use calculator to add 2 and 3",
		"Use calculator to multiply step 1 result by 4",
		"Use roll_dice with rolls=1",
	}, plan)
}

func TestPlan_DropsStepsContainingFillerSubstrings(t *testing.T) {
	m := model.NewMockModel("planner", "mock")
	m.Enqueue(`{"steps": [
		"Use calculator to compute this sum",
		"Use calculator on the highest value",
		"Use calculator to add 2 and 3"
	]}`)

	plan := NewGenerator(m, specs()).Plan(context.Background(), "add 2 and 3", nil)

	require.Equal(t, Plan{"Use calculator to add 2 and 3"}, plan)
	for _, step := range plan {
		for _, kw := range fillerKeywords {
			assert.NotContains(t, strings.ToLower(step), kw)
		}
	}
}

func TestPlan_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		enqueue func(m *model.MockModel)
	}{
		{"non json", func(m *model.MockModel) { m.Enqueue("I will add the numbers.") }},
		{"wrong shape", func(m *model.MockModel) { m.Enqueue(`["use calculator"]`) }},
		{"steps not a list", func(m *model.MockModel) { m.Enqueue(`{"steps": "use calculator"}`) }},
		{"everything filtered", func(m *model.MockModel) { m.Enqueue(`{"steps": ["hello there", "do magic"]}`) }},
		{"empty steps", func(m *model.MockModel) { m.Enqueue(`{"steps": []}`) }},
		{"model error", func(m *model.MockModel) { m.EnqueueError(errors.New("timeout")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model.NewMockModel("planner", "mock")
			tt.enqueue(m)
			g := NewGenerator(m, specs())

			plan := g.Plan(context.Background(), "add 2 and 3", nil)
			assert.Equal(t, Plan{"add 2 and 3"}, plan)
		})
	}
}

func TestPlan_StringifiesNonStringSteps(t *testing.T) {
	m := model.NewMockModel("planner", "mock")
	m.Enqueue(`{"steps": [42, {"tool": "calculator"}, null]}`)
	g := NewGenerator(m, specs())

	plan := g.Plan(context.Background(), "req", nil)
	assert.Equal(t, Plan{`{"tool":"calculator"}`}, plan)
}

func TestPlan_MessagesIncludeHistoryAndCatalog(t *testing.T) {
	m := model.NewMockModel("planner", "mock")
	m.Enqueue(`{"steps": ["Use calculator to add 2 and 3"]}`)

	history := []core.Message{
		core.UserMessage("Previous request:\nroll a die"),
		core.AssistantMessage("Completed prior interaction:\n{}"),
	}
	g := NewGenerator(m, specs(), func(o *Options) {
		o.MaxSteps = 4
		o.Temperature = model.Temperature(0.2)
	})
	g.Plan(context.Background(), "add 2 and 3", history)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	msgs := reqs[0].Messages
	require.Len(t, msgs, 4)

	assert.Equal(t, core.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "(between 1 and 4)")
	assert.Contains(t, msgs[0].Content, `{"steps": ["step description", ...]}`)
	assert.Equal(t, history, msgs[1:3])

	user := msgs[3]
	assert.Equal(t, core.RoleUser, user.Role)
	assert.True(t, strings.HasPrefix(user.Content, "User request:\nadd 2 and 3\n\nAvailable tools:\n- calculator: Performs basic arithmetic.\n- roll_dice: Rolls dice.\n"))
	assert.Contains(t, user.Content, "Create between 1 and 4 ordered steps")
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 0.2, *reqs[0].Temperature)
}

func TestGenerator_EmptyCatalogAndClamp(t *testing.T) {
	g := NewGenerator(model.NewMockModel("p", "mock"), nil, func(o *Options) { o.MaxSteps = 0 })
	assert.Equal(t, 1, g.MaxSteps())
	assert.Contains(t, g.UserPrompt("x"), "Available tools:\n(No plugins available)\n")
}

func TestPlan_LengthWithinBounds(t *testing.T) {
	many := `{"steps": [` + strings.TrimSuffix(strings.Repeat(`"use calculator",`, 12), ",") + `]}`
	for _, maxSteps := range []int{1, 2, 5, 10} {
		m := model.NewMockModel("planner", "mock")
		m.Enqueue(many)
		g := NewGenerator(m, specs(), func(o *Options) { o.MaxSteps = maxSteps })

		plan := g.Plan(context.Background(), "req", nil)
		assert.GreaterOrEqual(t, len(plan), 1)
		assert.LessOrEqual(t, len(plan), maxSteps)
	}
}
