package codegen

import "uiforge/uiforge/config"

// ConfigFrom maps service settings onto the generator's.
func ConfigFrom(cfg config.Config) GeneratorConfig {
	return GeneratorConfig{
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: cfg.FallbackModel,
		Temperature:   cfg.Temperature,
		Builder: PromptBuilder{
			Window:      cfg.ContextWindow,
			TokenBudget: cfg.PromptTokenBudget,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}
