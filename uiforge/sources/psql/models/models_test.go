package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageStatusTransitions(t *testing.T) {
	all := []MessageStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}

	assert.True(t, StatusPending.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusFailed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))

	for _, terminal := range []MessageStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, terminal.Terminal())
		for _, next := range all {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}

	assert.ElementsMatch(t, []MessageStatus{StatusProcessing}, Predecessors(StatusCompleted))
	assert.ElementsMatch(t, []MessageStatus{StatusPending, StatusProcessing}, Predecessors(StatusCancelled))
	assert.Empty(t, Predecessors(StatusPending))
}

func TestMessageValidate(t *testing.T) {
	cases := []struct {
		msg  Message
		want error
	}{
		{Message{Role: RoleUser, Text: "hi"}, nil},
		{Message{Role: RoleUser, Images: []Image{{URL: "u"}}}, nil},
		{Message{Role: RoleUser, Text: "   "}, ErrEmptyUserMessage},
		{Message{Role: RoleAssistant, Code: ComponentCode{JSX: "<a/>"}}, nil},
		{Message{Role: RoleAssistant, Text: "done"}, nil},
		{Message{Role: RoleAssistant}, ErrEmptyAssistantMessage},
		{Message{Role: RoleSystem}, nil},
		{Message{Role: "bot", Text: "x"}, ErrInvalidRole},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.msg.Validate(), "%+v", c.msg)
	}
}

func TestMergeProps(t *testing.T) {
	merged := MergeProps(
		map[string]interface{}{"label": "old", "size": "sm"},
		map[string]interface{}{"label": "new", "variant": "primary"},
	)
	assert.Equal(t, "new", merged["label"])
	assert.Equal(t, "sm", merged["size"])
	assert.Equal(t, "primary", merged["variant"])
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "button", NormalizeCategory("Button"))
	assert.Equal(t, "display", NormalizeCategory("ui"))
	assert.Equal(t, "other", NormalizeCategory("spaceship"))
	assert.Equal(t, "complex", NormalizeComplexity("COMPLEX"))
	assert.Equal(t, "simple", NormalizeComplexity(""))
}
