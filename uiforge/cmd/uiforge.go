// Command-line client that runs component generation without the server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"uiforge/uiforge/config"
	"uiforge/uiforge/services/codegen"
	"uiforge/uiforge/services/llm"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/color"
	"uiforge/uiforge/utils/logging"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)
	defer logging.Sync()

	catalog, err := llm.LoadCatalog(cfg.ModelCatalogPath)
	if err != nil {
		fmt.Println(color.ColorError(err.Error()))
		os.Exit(1)
	}

	args := os.Args[1:]
	switch {
	case len(args) >= 1 && args[0] == "models":
		printModels(catalog, cfg.DefaultModel)
	case len(args) >= 1 && args[0] == "chat":
		gen := codegen.NewGenerator(codegen.ConfigFrom(cfg), catalog, llm.NewProviders(cfg)...)
		model := cfg.DefaultModel
		if len(args) >= 2 {
			model = args[1]
		}
		runChat(gen, model, cfg.ContextWindow)
	default:
		fmt.Println("uiforge CLI usage:")
		fmt.Println("  uiforge models          # List the models the server can route to")
		fmt.Println("  uiforge chat [model]    # Generate components interactively")
		os.Exit(1)
	}
}

func printModels(catalog *llm.Catalog, defaultModel string) {
	for _, provider := range catalog.ProviderNames() {
		fmt.Println(color.ColorPrompt(provider))
		for _, m := range catalog.Providers[provider] {
			marker := " "
			if m.ID == defaultModel {
				marker = "*"
			}
			fmt.Printf(" %s %-24s %s (%s)\n", marker, m.ID, m.Name, m.Vendor)
		}
	}
}

// chatState mirrors what a session keeps: recent turns and the current component.
type chatState struct {
	model   string
	window  int
	seq     int
	history []codegen.HistoryTurn
	current codegen.CurrentComponent
}

func (s *chatState) record(role llm.Role, text, jsx string) {
	s.seq++
	s.history = append(s.history, codegen.HistoryTurn{
		Role: role, Text: text, JSX: jsx, Status: codegen.StatusCompleted, Sequence: s.seq,
	})
	if keep := 2 * s.window; keep > 0 && len(s.history) > keep {
		s.history = s.history[len(s.history)-keep:]
	}
}

func (s *chatState) apply(c codegen.ComponentResult) {
	if c.JSX != "" {
		s.current.JSX = c.JSX
	}
	if c.CSS != "" {
		s.current.CSS = c.CSS
	}
	s.current.Props = models.MergeProps(s.current.Props, c.Props)
}

func runChat(gen *codegen.Generator, model string, window int) {
	state := &chatState{model: model, window: window}
	fmt.Println(color.ColorInfo("Describe a component. Commands: /model <id>, /reset, /code, exit"))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Print(color.ColorPrompt("uiforge> "))
		if !scanner.Scan() {
			break // EOF or error
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return
		case line == "/reset":
			*state = chatState{model: state.model, window: window}
			fmt.Println(color.ColorInfo("conversation cleared"))
			continue
		case line == "/code":
			printCode(state.current.JSX, state.current.CSS)
			continue
		case strings.HasPrefix(line, "/model "):
			state.model = strings.TrimSpace(strings.TrimPrefix(line, "/model "))
			if !gen.Catalog().Has(state.model) {
				fmt.Println(color.ColorWarning("unknown model, it will be sent to the default provider"))
			}
			continue
		}

		res, err := gen.Generate(context.Background(), codegen.Request{
			Message: line,
			History: state.history,
			Model:   state.model,
			Current: state.current,
		})
		if err != nil {
			logging.ErrorLogger.Error("cli generation failed", zap.Error(err))
			fmt.Println(color.ColorError(err.Error()))
			continue
		}

		state.record(llm.RoleUser, line, "")
		state.record(llm.RoleAssistant, res.Component.Explanation, res.Component.JSX)
		state.apply(res.Component)
		printResult(res)
	}
}

func printResult(res *codegen.Result) {
	status := color.ColorSuccess(string(res.Provenance))
	if res.Provenance != codegen.Structured {
		status = color.ColorDegraded(string(res.Provenance))
	}
	fmt.Printf("%s  %s via %s in %s", status, res.Model, res.Provider, res.Elapsed.Round(1e6))
	if res.UsedFallback {
		fmt.Print(color.ColorWarning("  (fallback)"))
	}
	if res.Usage != nil {
		fmt.Printf("  %d tokens", res.Usage.TotalTokens)
	}
	fmt.Println()
	fmt.Println(color.ColorExplanation(res.Component.ComponentName))
	fmt.Println(res.Component.Explanation)
	printCode(res.Component.JSX, res.Component.CSS)
	for _, w := range codegen.ValidateJSX(res.Component.JSX) {
		fmt.Println(color.ColorWarning("warning: " + w))
	}
}

func printCode(jsx, css string) {
	if jsx != "" {
		fmt.Println(color.ColorCode(jsx))
	}
	if css != "" {
		fmt.Println(color.ColorCode(css))
	}
}
