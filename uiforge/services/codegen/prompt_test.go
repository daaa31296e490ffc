package codegen

import (
	"fmt"
	"strings"
	"testing"

	"uiforge/uiforge/services/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedHistory(n int) []HistoryTurn {
	out := make([]HistoryTurn, 0, n)
	for i := 1; i <= n; i++ {
		role := llm.RoleUser
		if i%2 == 0 {
			role = llm.RoleAssistant
		}
		out = append(out, HistoryTurn{Role: role, Text: fmt.Sprintf("turn %d", i), Status: StatusCompleted, Sequence: i})
	}
	return out
}

func TestFormatContext_WindowKeepsMostRecentCompletedInOrder(t *testing.T) {
	history := completedHistory(12)
	// more recent, but never fed to the model
	history = append(history,
		HistoryTurn{Role: llm.RoleAssistant, Text: "still working", Status: "processing", Sequence: 13},
		HistoryTurn{Role: llm.RoleAssistant, Text: "sorry", Status: "failed", Sequence: 14},
	)
	// storage order should not matter
	history[0], history[11] = history[11], history[0]

	b := PromptBuilder{Window: 5}
	p := b.Build(Request{Message: "next", History: history}, "gpt-4o-mini")

	require.Len(t, p.Context, 5)
	for i, turn := range p.Context {
		assert.Equal(t, fmt.Sprintf("turn %d", 8+i), turn.Content)
	}
	for _, turn := range p.Context {
		assert.NotEqual(t, "still working", turn.Content)
		assert.NotEqual(t, "sorry", turn.Content)
	}
}

func TestFormatContext_AssistantCodeAndEmptyText(t *testing.T) {
	b := PromptBuilder{}
	turns := b.FormatContext([]HistoryTurn{
		{Role: llm.RoleUser, Text: "", Status: StatusCompleted, Sequence: 1},
		{Role: llm.RoleAssistant, Text: "done", JSX: "<b/>", Status: StatusCompleted, Sequence: 2},
	}, 10)
	require.Len(t, turns, 2)
	assert.Equal(t, "No content", turns[0].Content)
	assert.Equal(t, "Generated component:\n```jsx\n<b/>\n```", turns[1].Content)

	assert.Empty(t, b.FormatContext(completedHistory(3), 0))
}

func TestBuildUserPrompt(t *testing.T) {
	b := PromptBuilder{}
	fresh := b.BuildUserPrompt("a navbar", CurrentComponent{}, nil)
	assert.True(t, strings.HasPrefix(fresh, "User Request: a navbar\n\n"))
	assert.Contains(t, fresh, "create a new React component")
	assert.True(t, strings.HasSuffix(fresh, "valid JSON object as specified in the system prompt."))

	edit := b.BuildUserPrompt("make it red", CurrentComponent{JSX: "<nav/>", CSS: "nav{}"}, nil)
	assert.Contains(t, edit, "Current Component:\n```jsx\n<nav/>\n```")
	assert.Contains(t, edit, "Current CSS:\n```css\nnav{}\n```")
	assert.Contains(t, edit, "modify the existing component")
	assert.NotContains(t, edit, "create a new")

	// a CSS-only fallback leaves the session without JSX
	cssOnly := b.BuildUserPrompt("make it red", CurrentComponent{CSS: ".btn{color:blue}"}, nil)
	assert.Contains(t, cssOnly, "Current CSS:\n```css\n.btn{color:blue}\n```")
	assert.NotContains(t, cssOnly, "```jsx")
	assert.Contains(t, cssOnly, "modify the existing component")
	assert.NotContains(t, cssOnly, "create a new")
}

func TestBuild_ImagesAndSettings(t *testing.T) {
	temp := 0.3
	b := PromptBuilder{Window: 5, MaxTokens: 4000}
	p := b.Build(Request{
		Message:     "like this screenshot",
		Images:      []llm.Image{{URL: "https://x/y.png"}},
		History:     completedHistory(2),
		Temperature: &temp,
	}, "gpt-4o")

	assert.Equal(t, "gpt-4o", p.Model)
	assert.Equal(t, 4000, p.MaxTokens)
	assert.InDelta(t, 0.3, p.Temperature, 1e-9)
	assert.Equal(t, b.BuildSystemPrompt(), p.System)
	assert.Len(t, p.Images, 1)
	assert.Len(t, p.Context, 2)
	assert.Contains(t, p.System, "MANDATORY RESPONSE FORMAT")
}

func TestBuild_TokenBudgetDropsOldestContext(t *testing.T) {
	history := completedHistory(5)
	for i := range history {
		history[i].Text = strings.Repeat(fmt.Sprintf("word%d ", i), 200)
	}
	unbounded := PromptBuilder{Window: 5}.Build(Request{Message: "x", History: history}, "m")
	require.Len(t, unbounded.Context, 5)

	withoutContext := unbounded
	withoutContext.Context = nil
	budget := llm.EstimatePrompt(withoutContext) + llm.EstimateTokens(history[4].Text) + 5

	bounded := PromptBuilder{Window: 5, TokenBudget: budget}.Build(Request{Message: "x", History: history}, "m")
	require.NotEmpty(t, bounded.Context)
	assert.Less(t, len(bounded.Context), 5)
	assert.Equal(t, history[4].Text, bounded.Context[len(bounded.Context)-1].Content)
}
