// Package codegen turns a chat request into a React component: it builds the
// prompt, calls a provider with one fallback, and parses whatever comes back.
package codegen

import (
	"time"

	"uiforge/uiforge/services/llm"
)

const (
	DefaultComponentName = "GeneratedComponent"
	DefaultExplanation   = "Component generated successfully"
	DefaultCategory      = "other"
	DefaultComplexity    = "simple"
)

// ComponentResult is the structured artifact extracted from a model answer.
type ComponentResult struct {
	ComponentName string                 `json:"componentName"`
	Explanation   string                 `json:"explanation"`
	JSX           string                 `json:"jsx"`
	CSS           string                 `json:"css"`
	Props         map[string]interface{} `json:"props"`
	Dependencies  []string               `json:"dependencies"`
	Category      string                 `json:"category"`
	Complexity    string                 `json:"complexity"`
	Features      []string               `json:"features,omitempty"`
	Usage         string                 `json:"usage,omitempty"`
	Tokens        *llm.Usage             `json:"-"`
}

// CurrentComponent is the session's last accepted code.
type CurrentComponent struct {
	JSX   string
	CSS   string
	Props map[string]interface{}
}

func (c CurrentComponent) IsEmpty() bool {
	return c.JSX == "" && c.CSS == ""
}

// HistoryTurn is a stored message as seen by the prompt builder.
type HistoryTurn struct {
	Role     llm.Role
	Text     string
	JSX      string
	Status   string
	Sequence int
}

// StatusCompleted is the only history status allowed into the prompt.
const StatusCompleted = "completed"

type Request struct {
	Message     string
	Images      []llm.Image
	History     []HistoryTurn
	Model       string
	Temperature *float64 // nil uses the configured default
	Current     CurrentComponent
}

type Result struct {
	Component    ComponentResult
	Provenance   Provenance
	Model        string
	Provider     string
	UsedFallback bool
	Elapsed      time.Duration
	Usage        *llm.Usage
	Temperature  float64 // as sent, after defaulting
}
