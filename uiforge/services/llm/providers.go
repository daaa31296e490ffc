package llm

import "uiforge/uiforge/config"

// NewProviders builds one client per catalog provider. A provider without an
// API key is still returned; its calls fail with KindAuth.
func NewProviders(cfg config.Config) []Provider {
	return []Provider{
		NewOpenRouterClient(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.ProviderTimeout),
		NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.ProviderTimeout),
	}
}
