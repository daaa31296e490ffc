package codegen

import (
	"fmt"
	"sort"
	"strings"

	"uiforge/uiforge/services/llm"
)

const systemPrompt = `You are an expert React component generator. You produce production-ready, accessible and modern components.

CORE PRINCIPLES:
1. Generate complete, functional React components that work out of the box
2. Use functional components and hooks
3. Ensure full accessibility: ARIA labels, semantic HTML, keyboard navigation
4. Build responsive layouts that work on every screen size
5. Handle loading, empty and error states

MANDATORY RESPONSE FORMAT (ALWAYS VALID JSON, NOTHING ELSE):
{
  "componentName": "PascalCaseComponentName",
  "explanation": "What the component does and how to use it",
  "jsx": "// Complete React component code with imports and a default export",
  "css": "/* Custom CSS only when Tailwind is not enough */",
  "props": {
    "propName": {
      "type": "string|number|boolean|object|array|function",
      "description": "What the prop controls",
      "required": true,
      "default": "defaultValue"
    }
  },
  "dependencies": ["react"],
  "category": "button|form|layout|navigation|display|input|feedback|other",
  "complexity": "simple|medium|complex",
  "features": ["responsive", "accessible", "interactive"],
  "usage": "<ComponentName prop1=\"value\" />"
}

STYLING GUIDELINES:
- Prefer Tailwind CSS utility classes
- Add custom CSS only where Tailwind cannot express the design
- Support dark mode with dark: variants
- Use responsive breakpoints (sm:, md:, lg:, xl:)
- Keep color contrast at WCAG AA or better

ACCESSIBILITY REQUIREMENTS:
- Use semantic elements (button, nav, main, section)
- Provide ARIA roles, labels and descriptions where needed
- Support Tab, Enter, Escape and arrow key navigation
- Manage focus for dialogs and menus
- Never rely on color alone to convey information`

// PromptBuilder assembles prompts for the generator.
type PromptBuilder struct {
	// Window is the number of completed turns kept as context.
	Window int
	// TokenBudget drops the oldest context turns until the prompt fits. 0 disables it.
	TokenBudget int
	MaxTokens   int
}

func (b PromptBuilder) BuildSystemPrompt() string {
	return systemPrompt
}

func (b PromptBuilder) BuildUserPrompt(message string, current CurrentComponent, history []HistoryTurn) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User Request: %s\n\n", message)

	if !current.IsEmpty() {
		if current.JSX != "" {
			fmt.Fprintf(&sb, "Current Component:\n```jsx\n%s\n```\n\n", current.JSX)
		}
		if current.CSS != "" {
			fmt.Fprintf(&sb, "Current CSS:\n```css\n%s\n```\n\n", current.CSS)
		}
		sb.WriteString("Please modify the existing component based on the user request.\n\n")
	} else {
		if len(history) > 0 {
			sb.WriteString("Earlier turns of this conversation are included for context.\n")
		}
		sb.WriteString("Please create a new React component based on the user request.\n\n")
	}

	sb.WriteString("Remember to respond with a valid JSON object as specified in the system prompt.")
	return sb.String()
}

// FormatContext keeps the window most recent completed turns, oldest first.
func (b PromptBuilder) FormatContext(history []HistoryTurn, window int) []llm.Turn {
	if window <= 0 {
		return nil
	}
	done := make([]HistoryTurn, 0, len(history))
	for _, h := range history {
		if h.Status == StatusCompleted {
			done = append(done, h)
		}
	}
	sort.SliceStable(done, func(i, j int) bool { return done[i].Sequence < done[j].Sequence })
	if len(done) > window {
		done = done[len(done)-window:]
	}

	turns := make([]llm.Turn, 0, len(done))
	for _, h := range done {
		content := h.Text
		switch {
		case h.Role == llm.RoleAssistant && h.JSX != "":
			content = "Generated component:\n```jsx\n" + h.JSX + "\n```"
		case content == "":
			content = "No content"
		}
		turns = append(turns, llm.Turn{Role: h.Role, Content: content})
	}
	return turns
}

// Build assembles the full prompt for model.
func (b PromptBuilder) Build(req Request, model string) llm.Prompt {
	p := llm.Prompt{
		System:    b.BuildSystemPrompt(),
		Context:   b.FormatContext(req.History, b.Window),
		User:      b.BuildUserPrompt(req.Message, req.Current, req.History),
		Images:    req.Images,
		Model:     model,
		MaxTokens: b.MaxTokens,
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}
	if b.TokenBudget > 0 {
		for len(p.Context) > 0 && llm.EstimatePrompt(p) > b.TokenBudget {
			p.Context = p.Context[1:]
		}
	}
	return p
}
